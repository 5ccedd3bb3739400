package transcript

import "github.com/google/uuid"

// Accumulator buffers the artifacts emitted during an AI turn until the next
// answer text arrives, at which point the session flushes them into a single
// AssetsBlock ahead of the text. Generated evidence therefore always
// precedes the narrative that references it.
type Accumulator struct {
	group AssetGroup
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// IsEmpty reports whether anything has been buffered since the last flush.
func (a *Accumulator) IsEmpty() bool {
	return a.group.Empty()
}

// PushSQL buffers a generated query artifact.
func (a *Accumulator) PushSQL(title, query string) {
	a.ensureGroup()
	a.group.SQLs = append(a.group.SQLs, SQLAsset{
		ID:    uuid.New().String(),
		Title: title,
		Query: query,
	})
}

// PushDataframe buffers a tabular result artifact.
func (a *Accumulator) PushDataframe(title string, columns []string, rows [][]any) {
	a.ensureGroup()
	a.group.Dataframes = append(a.group.Dataframes, DataframeAsset{
		ID:      uuid.New().String(),
		Title:   title,
		Columns: columns,
		Rows:    rows,
	})
}

// PushChart buffers a chart configuration artifact.
func (a *Accumulator) PushChart(asset ChartAsset) {
	a.ensureGroup()
	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}
	a.group.Charts = append(a.group.Charts, asset)
}

// Flush returns the buffered group and resets the accumulator for the rest
// of the turn.
func (a *Accumulator) Flush() AssetGroup {
	g := a.group
	a.group = AssetGroup{}
	return g
}

func (a *Accumulator) ensureGroup() {
	if a.group.ID == "" {
		a.group.ID = uuid.New().String()
	}
}
