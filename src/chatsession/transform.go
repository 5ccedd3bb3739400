package chatsession

import (
	"github.com/kwang-arcfusion/askchat/src/chatapi"
	"github.com/kwang-arcfusion/askchat/src/chatwire"
	"github.com/kwang-arcfusion/askchat/src/transcript"
)

// Asset titles used for artifacts synthesized from stream events and from
// persisted messages.
const (
	sqlAssetTitle       = "Generated SQL"
	dataframeAssetTitle = "Query result"
)

// ErrorLoadingTitle is the sentinel conversation title shown when a history
// load fails.
const ErrorLoadingTitle = "Error Loading Chat"

// TransformConversation rebuilds a transcript from a persisted conversation.
// System messages are skipped. Each user message becomes a text block. Each
// bot message contributes, in order, one assets block synthesized from any
// attached sql/result/chart fields, then a text block if it has text; all
// blocks of a message carry its backend id. Applying this to the same
// conversation twice yields structurally identical transcripts.
func TransformConversation(conv *chatapi.Conversation) *transcript.Transcript {
	t := transcript.New()
	acc := transcript.NewAccumulator()

	for _, msg := range conv.Messages {
		before := t.Len()

		switch msg.Role {
		case chatapi.RoleSystem:
			continue

		case chatapi.RoleUser:
			t.AppendText(transcript.SenderUser, msg.Content)

		case chatapi.RoleBot:
			if msg.SQLQuery != "" {
				acc.PushSQL(sqlAssetTitle, msg.SQLQuery)
			}
			if len(msg.SQLQueryResult) > 0 {
				cols, rows := chatwire.Tabulate(msg.SQLQueryResult)
				acc.PushDataframe(dataframeAssetTitle, cols, rows)
			}
			if len(msg.ChartBuilderResult) > 0 && string(msg.ChartBuilderResult) != "null" {
				acc.PushChart(transcript.ChartAsset{
					Title:  chatwire.ChartTitle(msg.ChartBuilderResult),
					Config: msg.ChartBuilderResult,
				})
			}
			if !acc.IsEmpty() {
				t.AppendAssets(acc.Flush())
			}
			if msg.Content != "" {
				t.AppendText(transcript.SenderAI, msg.Content)
			}
		}

		if msg.ID != "" {
			t.StampMessageID(before-1, msg.ID)
		}
	}

	return t
}
