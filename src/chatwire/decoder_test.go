package chatwire

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drippingReader returns at most n bytes per Read, forcing records to arrive
// split across many reads.
type drippingReader struct {
	s string
	n int
}

func (r *drippingReader) Read(p []byte) (int, error) {
	if len(r.s) == 0 {
		return 0, io.EOF
	}
	n := r.n
	if n > len(r.s) {
		n = len(r.s)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.s[:n])
	r.s = r.s[n:]
	return n, nil
}

func collect(t *testing.T, d *Decoder) []Event {
	t.Helper()
	var events []Event
	for {
		ev, err := d.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestDecoderAnswerChunks(t *testing.T) {
	stream := "data:{\"answer_chunk\":\"Hel\"}\n" +
		"data:{\"answer_chunk\":\"lo\"}\n" +
		"data:{\"answer_chunk\":\" world\"}\n" +
		"data:[DONE]\n"

	events := collect(t, NewDecoder(strings.NewReader(stream), nil))

	require.Len(t, events, 3)
	var got strings.Builder
	for _, ev := range events {
		assert.Equal(t, EventAnswerChunk, ev.Kind)
		got.WriteString(ev.Text)
	}
	assert.Equal(t, "Hello world", got.String())
}

func TestDecoderRecordSplitAcrossReads(t *testing.T) {
	stream := "data:{\"answer_chunk\":\"split across many tiny reads\"}\ndata:[DONE]\n"

	events := collect(t, NewDecoder(&drippingReader{s: stream, n: 3}, nil))

	require.Len(t, events, 1)
	assert.Equal(t, "split across many tiny reads", events[0].Text)
}

func TestDecoderDoneSentinelStopsReading(t *testing.T) {
	stream := "data:{\"answer_chunk\":\"before\"}\n" +
		"data: [DONE]\n" +
		"data:{\"answer_chunk\":\"after\"}\n"

	events := collect(t, NewDecoder(strings.NewReader(stream), nil))

	require.Len(t, events, 1)
	assert.Equal(t, "before", events[0].Text)
}

func TestDecoderMalformedRecordSkipped(t *testing.T) {
	stream := "data:{\"answer_chunk\":\"one\"}\n" +
		"data:{not json at all\n" +
		"data:{\"answer_chunk\":\"two\"}\n" +
		"data:[DONE]\n"

	events := collect(t, NewDecoder(strings.NewReader(stream), nil))

	require.Len(t, events, 2)
	assert.Equal(t, "one", events[0].Text)
	assert.Equal(t, "two", events[1].Text)
}

func TestDecoderMultiKeyRecord(t *testing.T) {
	// An early answer indicator and the first text can share one record;
	// artifacts in the same record come out first.
	stream := "data:{\"sql_query\":\"SELECT 1\",\"answer_chunk\":\"Here\"}\n" +
		"data:[DONE]\n"

	events := collect(t, NewDecoder(strings.NewReader(stream), nil))

	require.Len(t, events, 2)
	assert.Equal(t, EventSQLQuery, events[0].Kind)
	assert.Equal(t, "SELECT 1", events[0].SQL)
	assert.Equal(t, EventAnswerChunk, events[1].Kind)
	assert.Equal(t, "Here", events[1].Text)
}

func TestDecoderSQLResultTabulation(t *testing.T) {
	stream := "data:{\"sql_query_result\":[{\"b\":2,\"a\":1},{\"b\":4,\"a\":3}]}\n" +
		"data:[DONE]\n"

	events := collect(t, NewDecoder(strings.NewReader(stream), nil))

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, EventSQLResult, ev.Kind)
	assert.Equal(t, []string{"a", "b"}, ev.Columns)
	require.Len(t, ev.Rows, 2)
	assert.Equal(t, float64(1), ev.Rows[0][0])
	assert.Equal(t, float64(2), ev.Rows[0][1])
}

func TestDecoderEmptySQLResultIgnored(t *testing.T) {
	stream := "data:{\"sql_query_result\":[]}\ndata:[DONE]\n"

	events := collect(t, NewDecoder(strings.NewReader(stream), nil))
	assert.Empty(t, events)
}

func TestDecoderChartTitles(t *testing.T) {
	tests := []struct {
		name  string
		chart string
		want  string
	}{
		{"nested title", `{"title":{"text":"Revenue by month"}}`, "Revenue by month"},
		{"missing title", `{"series":[]}`, "Chart"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := "data:{\"chart_builder_result\":" + tt.chart + "}\ndata:[DONE]\n"
			events := collect(t, NewDecoder(strings.NewReader(stream), nil))

			require.Len(t, events, 1)
			assert.Equal(t, EventChart, events[0].Kind)
			assert.Equal(t, tt.want, events[0].ChartTitle)
		})
	}
}

func TestDecoderEach(t *testing.T) {
	stream := "data:{\"answer\":\"full text\"}\ndata:[DONE]\n"

	var kinds []EventKind
	err := NewDecoder(strings.NewReader(stream), nil).Each(func(ev Event) error {
		kinds = append(kinds, ev.Kind)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventAnswer}, kinds)
}
