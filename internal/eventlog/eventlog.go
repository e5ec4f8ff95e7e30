// Package eventlog reads and writes the NDJSON interchange format for
// session event logs.
//
// Capture front-ends (editors, input shims) emit one JSON object per
// line, either a keystroke record or an edit record. Records are
// validated against the embedded JSON schema before decoding, so a
// malformed feed is rejected at the boundary instead of surfacing as
// skewed statistics later.
package eventlog

import (
	"bufio"
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"keywitness/internal/event"
	"keywitness/internal/keyclass"
)

//go:embed schema/event-log-v1.schema.json
var schemaFS embed.FS

const schemaPath = "schema/event-log-v1.schema.json"

// Log is a decoded session event log: the time-ordered keystroke stream
// plus the edit stream.
type Log struct {
	Keystrokes []event.Keystroke
	Edits      []event.Edit
}

// record is the decoded superset shape of one NDJSON line.
type record struct {
	Type        string `json:"type"`
	TimestampMs int64  `json:"timestamp_ms"`

	// Keystroke fields
	Kind         string   `json:"kind"`
	Category     string   `json:"category"`
	DwellTimeMs  *float64 `json:"dwell_time_ms"`
	FlightTimeMs *float64 `json:"flight_time_ms"`

	// Edit fields
	From          int    `json:"from"`
	To            int    `json:"to"`
	ContentLength int    `json:"content_length"`
	Source        string `json:"source"`
}

// keystrokeRecord is the wire shape of a keystroke line.
type keystrokeRecord struct {
	Type         string   `json:"type"`
	TimestampMs  int64    `json:"timestamp_ms"`
	Kind         string   `json:"kind"`
	Category     string   `json:"category"`
	DwellTimeMs  *float64 `json:"dwell_time_ms,omitempty"`
	FlightTimeMs *float64 `json:"flight_time_ms,omitempty"`
}

// editRecord is the wire shape of an edit line.
type editRecord struct {
	Type          string `json:"type"`
	TimestampMs   int64  `json:"timestamp_ms"`
	Kind          string `json:"kind"`
	From          int    `json:"from"`
	To            int    `json:"to"`
	ContentLength int    `json:"content_length"`
	Source        string `json:"source"`
}

// Decoder decodes and validates NDJSON event logs.
type Decoder struct {
	schema *jsonschema.Schema
}

// NewDecoder compiles the embedded schema and returns a decoder.
func NewDecoder() (*Decoder, error) {
	data, err := schemaFS.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("read embedded schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaPath, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Decoder{schema: schema}, nil
}

// Decode reads NDJSON records from r until EOF. Blank lines are
// skipped. Any record that fails schema validation aborts the decode
// with a line-numbered error.
func (d *Decoder) Decode(r io.Reader) (*Log, error) {
	log := &Log{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var instance any
		if err := json.Unmarshal(line, &instance); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNo, err)
		}
		if err := d.schema.Validate(instance); err != nil {
			return nil, fmt.Errorf("line %d: schema validation: %w", lineNo, err)
		}

		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("line %d: decode record: %w", lineNo, err)
		}

		switch rec.Type {
		case "keystroke":
			log.Keystrokes = append(log.Keystrokes, event.Keystroke{
				Kind:         event.Kind(rec.Kind),
				Category:     keyclass.Category(rec.Category),
				TimestampMs:  rec.TimestampMs,
				DwellTimeMs:  rec.DwellTimeMs,
				FlightTimeMs: rec.FlightTimeMs,
			})
		case "edit":
			log.Edits = append(log.Edits, event.Edit{
				Kind:          event.EditKind(rec.Kind),
				From:          rec.From,
				To:            rec.To,
				ContentLength: rec.ContentLength,
				TimestampMs:   rec.TimestampMs,
				Source:        event.EditSource(rec.Source),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}

	return log, nil
}

// Encode writes the log as NDJSON: keystrokes first, then edits, each
// stream in its original order.
func Encode(w io.Writer, log *Log) error {
	enc := json.NewEncoder(w)
	for _, k := range log.Keystrokes {
		rec := keystrokeRecord{
			Type:         "keystroke",
			TimestampMs:  k.TimestampMs,
			Kind:         string(k.Kind),
			Category:     string(k.Category),
			DwellTimeMs:  k.DwellTimeMs,
			FlightTimeMs: k.FlightTimeMs,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode keystroke: %w", err)
		}
	}
	for _, e := range log.Edits {
		rec := editRecord{
			Type:          "edit",
			TimestampMs:   e.TimestampMs,
			Kind:          string(e.Kind),
			From:          e.From,
			To:            e.To,
			ContentLength: e.ContentLength,
			Source:        string(e.Source),
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode edit: %w", err)
		}
	}
	return nil
}
