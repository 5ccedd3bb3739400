package transcript

import "encoding/json"

// Sender identifies who produced a text block.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Block is one renderable unit of a conversation transcript. Blocks are
// identified by a session-local monotonic id, which is distinct from the
// backend message id assigned after the server persists the turn.
type Block interface {
	// BlockID returns the session-local id, stable for the block's lifetime.
	BlockID() int64

	// BackendMessageID returns the server-assigned message id, or "" while
	// the turn has not been reconciled yet. Feedback and export actions are
	// unavailable until this is populated.
	BackendMessageID() string

	setMessageID(id string)
}

// TextBlock is a single chat bubble. Content may grow while the block is the
// streaming tail of the transcript; it is frozen once the turn moves on.
type TextBlock struct {
	ID        int64
	MessageID string
	Sender    Sender
	Content   string
}

func (b *TextBlock) BlockID() int64           { return b.ID }
func (b *TextBlock) BackendMessageID() string { return b.MessageID }
func (b *TextBlock) setMessageID(id string)   { b.MessageID = id }

// AssetsBlock carries the artifacts generated during one AI turn, grouped
// ahead of the answer text that references them. It is immutable once
// appended.
type AssetsBlock struct {
	ID        int64
	MessageID string
	Group     AssetGroup
}

func (b *AssetsBlock) BlockID() int64           { return b.ID }
func (b *AssetsBlock) BackendMessageID() string { return b.MessageID }
func (b *AssetsBlock) setMessageID(id string)   { b.MessageID = id }

// AssetGroup collects the artifacts produced during one AI turn, by kind.
type AssetGroup struct {
	ID         string
	SQLs       []SQLAsset
	Dataframes []DataframeAsset
	Charts     []ChartAsset
}

// Empty reports whether the group holds no artifacts.
func (g AssetGroup) Empty() bool {
	return len(g.SQLs) == 0 && len(g.Dataframes) == 0 && len(g.Charts) == 0
}

// SQLAsset is a generated query artifact.
type SQLAsset struct {
	ID    string
	Title string
	Query string
}

// DataframeAsset is a tabular result artifact. Rows are ordered by Columns.
type DataframeAsset struct {
	ID      string
	Title   string
	Columns []string
	Rows    [][]any
}

// ChartAsset is an opaque chart configuration artifact. Config is passed
// through to the render layer untouched.
type ChartAsset struct {
	ID     string
	Title  string
	Config json.RawMessage
}
