package chatwire

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
)

const (
	// recordMarker prefixes every well-formed record on the wire.
	recordMarker = "data:"
	// doneSentinel is the trimmed payload of the terminating record.
	doneSentinel = "[DONE]"

	maxRecordSize = 4 * 1024 * 1024
)

// Decoder turns a raw streamed response body into an ordered sequence of
// typed events. Records are newline-terminated "data:<json>" frames; a frame
// split across reads is buffered until the rest arrives. A record whose
// trimmed payload is the [DONE] sentinel ends the sequence. Malformed JSON
// in a record is non-fatal: the record is dropped with a warning and
// decoding continues.
type Decoder struct {
	scanner *bufio.Scanner
	logger  *slog.Logger
	pending []Event
	done    bool
}

func NewDecoder(r io.Reader, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxRecordSize)
	return &Decoder{
		scanner: sc,
		logger:  logger.With("component", "chatwire"),
	}
}

// Next returns the next event in arrival order. It returns io.EOF when the
// sentinel record arrives or the underlying stream ends; any other error
// comes from the underlying reader.
func (d *Decoder) Next() (Event, error) {
	for len(d.pending) == 0 {
		if d.done {
			return Event{}, io.EOF
		}
		if !d.scanner.Scan() {
			d.done = true
			if err := d.scanner.Err(); err != nil {
				return Event{}, err
			}
			return Event{}, io.EOF
		}

		line := strings.TrimSpace(d.scanner.Text())
		if line == "" || !strings.HasPrefix(line, recordMarker) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, recordMarker))
		if payload == doneSentinel {
			d.done = true
			return Event{}, io.EOF
		}

		var rec record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			d.logger.Warn("dropping malformed stream record", "error", err)
			continue
		}
		d.pending = classify(rec)
	}

	ev := d.pending[0]
	d.pending = d.pending[1:]
	return ev, nil
}

// Each drives the decoder to completion, calling fn for every event. It
// stops early if fn returns an error.
func (d *Decoder) Each(fn func(Event) error) error {
	for {
		ev, err := d.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
