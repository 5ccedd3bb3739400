package chatwire

import (
	"encoding/json"
	"sort"
)

// EventKind tags a decoded stream event. Classification happens exactly once
// at the decode boundary, so consumers switch on the tag instead of probing
// raw payloads for key presence.
type EventKind string

const (
	// EventSQLQuery carries a generated query artifact.
	EventSQLQuery EventKind = "sql_query"
	// EventSQLResult carries tabular rows for the preceding query.
	EventSQLResult EventKind = "sql_query_result"
	// EventChart carries an opaque chart configuration.
	EventChart EventKind = "chart_builder_result"
	// EventAnswerChunk carries an incremental answer text fragment.
	EventAnswerChunk EventKind = "answer_chunk"
	// EventAnswer carries a whole-answer text fragment. It is accumulated
	// identically to a chunk but signals the turn's textual content.
	EventAnswer EventKind = "answer"
)

// Event is one typed protocol event. Only the fields matching Kind are set.
type Event struct {
	Kind EventKind

	// SQL is the query text for EventSQLQuery.
	SQL string

	// Columns and Rows hold the table for EventSQLResult. Columns are the
	// key set of the first row, sorted for a deterministic order.
	Columns []string
	Rows    [][]any

	// ChartTitle and Chart hold the chart for EventChart.
	ChartTitle string
	Chart      json.RawMessage

	// Text is the fragment for EventAnswerChunk and EventAnswer.
	Text string
}

// record mirrors one wire payload. The protocol has no discriminant field;
// the key set identifies the semantic kind, and a single record may carry
// several keys at once (e.g. an answer indicator plus its first text).
type record struct {
	SQLQuery           *string          `json:"sql_query"`
	SQLQueryResult     []map[string]any `json:"sql_query_result"`
	ChartBuilderResult json.RawMessage  `json:"chart_builder_result"`
	AnswerChunk        *string          `json:"answer_chunk"`
	Answer             *string          `json:"answer"`
}

// classify converts a decoded record into its events, in a fixed order:
// artifacts first, answer text last, matching the order the transcript
// consumes them in.
func classify(rec record) []Event {
	var events []Event

	if rec.SQLQuery != nil {
		events = append(events, Event{Kind: EventSQLQuery, SQL: *rec.SQLQuery})
	}
	if len(rec.SQLQueryResult) > 0 {
		cols, rows := Tabulate(rec.SQLQueryResult)
		events = append(events, Event{Kind: EventSQLResult, Columns: cols, Rows: rows})
	}
	if chartPresent(rec.ChartBuilderResult) {
		events = append(events, Event{
			Kind:       EventChart,
			ChartTitle: ChartTitle(rec.ChartBuilderResult),
			Chart:      rec.ChartBuilderResult,
		})
	}
	if rec.AnswerChunk != nil {
		events = append(events, Event{Kind: EventAnswerChunk, Text: *rec.AnswerChunk})
	}
	if rec.Answer != nil {
		events = append(events, Event{Kind: EventAnswer, Text: *rec.Answer})
	}

	return events
}

// Tabulate derives the column set from the first row and projects every row
// onto it. JSON objects carry no key order, so columns are sorted. raw must
// be non-empty.
func Tabulate(raw []map[string]any) ([]string, [][]any) {
	cols := make([]string, 0, len(raw[0]))
	for k := range raw[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	rows := make([][]any, len(raw))
	for i, obj := range raw {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = obj[c]
		}
		rows[i] = row
	}
	return cols, rows
}

func chartPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// ChartTitle reads the display title from a chart configuration's nested
// title.text field, defaulting to "Chart" when absent.
func ChartTitle(raw json.RawMessage) string {
	var cfg struct {
		Title struct {
			Text string `json:"text"`
		} `json:"title"`
	}
	if err := json.Unmarshal(raw, &cfg); err == nil && cfg.Title.Text != "" {
		return cfg.Title.Text
	}
	return "Chart"
}
