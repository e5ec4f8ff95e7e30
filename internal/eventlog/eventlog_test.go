package eventlog

import (
	"bytes"
	"strings"
	"testing"

	"keywitness/internal/event"
	"keywitness/internal/keyclass"
)

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	d, err := NewDecoder()
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	return d
}

func TestDecodeValidLog(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"keystroke","timestamp_ms":0,"kind":"keydown","category":"letter"}`,
		``,
		`{"type":"keystroke","timestamp_ms":80,"kind":"keyup","category":"letter","dwell_time_ms":80,"flight_time_ms":120.5}`,
		`{"type":"edit","timestamp_ms":90,"kind":"insert","from":0,"to":0,"content_length":1,"source":"keyboard"}`,
		`{"type":"edit","timestamp_ms":400,"kind":"paste","from":1,"to":1,"content_length":240,"source":"paste"}`,
	}, "\n")

	log, err := newTestDecoder(t).Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(log.Keystrokes) != 2 {
		t.Fatalf("got %d keystrokes, want 2", len(log.Keystrokes))
	}
	if len(log.Edits) != 2 {
		t.Fatalf("got %d edits, want 2", len(log.Edits))
	}

	k := log.Keystrokes[1]
	if k.Kind != event.KeyUp || k.Category != keyclass.CategoryLetter {
		t.Errorf("keystroke decoded as %+v", k)
	}
	if k.DwellTimeMs == nil || *k.DwellTimeMs != 80 {
		t.Errorf("DwellTimeMs = %v, want 80", k.DwellTimeMs)
	}
	if k.FlightTimeMs == nil || *k.FlightTimeMs != 120.5 {
		t.Errorf("FlightTimeMs = %v, want 120.5", k.FlightTimeMs)
	}
	if log.Keystrokes[0].DwellTimeMs != nil {
		t.Error("absent dwell_time_ms should decode as nil")
	}

	e := log.Edits[1]
	if e.Kind != event.EditPaste || e.Source != event.SourcePaste || e.ContentLength != 240 {
		t.Errorf("edit decoded as %+v", e)
	}
}

func TestDecodeRejectsInvalidRecords(t *testing.T) {
	valid := `{"type":"keystroke","timestamp_ms":0,"kind":"keydown","category":"letter"}`

	tests := []struct {
		name string
		line string
	}{
		{"not json", `{"type":`},
		{"unknown type", `{"type":"mouse","timestamp_ms":0}`},
		{"missing timestamp", `{"type":"keystroke","kind":"keydown","category":"letter"}`},
		{"negative timestamp", `{"type":"keystroke","timestamp_ms":-5,"kind":"keydown","category":"letter"}`},
		{"bad kind", `{"type":"keystroke","timestamp_ms":0,"kind":"press","category":"letter"}`},
		{"bad category", `{"type":"keystroke","timestamp_ms":0,"kind":"keydown","category":"vowel"}`},
		{"keystroke without category", `{"type":"keystroke","timestamp_ms":0,"kind":"keydown"}`},
		{"negative dwell", `{"type":"keystroke","timestamp_ms":0,"kind":"keydown","category":"letter","dwell_time_ms":-1}`},
		{"edit without source", `{"type":"edit","timestamp_ms":0,"kind":"insert","from":0,"to":0,"content_length":1}`},
		{"bad edit kind", `{"type":"edit","timestamp_ms":0,"kind":"undo","from":0,"to":0,"content_length":1,"source":"keyboard"}`},
	}

	d := newTestDecoder(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid + "\n" + tt.line + "\n"
			_, err := d.Decode(strings.NewReader(input))
			if err == nil {
				t.Fatalf("Decode accepted %s", tt.line)
			}
			if !strings.Contains(err.Error(), "line 2") {
				t.Errorf("error %q does not name the offending line", err)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	dwell := 75.0
	flight := 130.0
	orig := &Log{
		Keystrokes: []event.Keystroke{
			{Kind: event.KeyDown, Category: keyclass.CategoryLetter, TimestampMs: 0},
			{Kind: event.KeyUp, Category: keyclass.CategoryLetter, TimestampMs: 75,
				DwellTimeMs: &dwell, FlightTimeMs: &flight},
			{Kind: event.KeyDown, Category: keyclass.CategoryNavigation, TimestampMs: 300},
		},
		Edits: []event.Edit{
			{Kind: event.EditInsert, From: 0, To: 0, ContentLength: 1, TimestampMs: 80,
				Source: event.SourceKeyboard},
			{Kind: event.EditReplace, From: 0, To: 1, ContentLength: 12, TimestampMs: 500,
				Source: event.SourcePaste},
		},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, orig); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := newTestDecoder(t).Decode(&buf)
	if err != nil {
		t.Fatalf("Decode of encoded log: %v", err)
	}

	if len(decoded.Keystrokes) != len(orig.Keystrokes) {
		t.Fatalf("got %d keystrokes, want %d", len(decoded.Keystrokes), len(orig.Keystrokes))
	}
	for i := range orig.Keystrokes {
		want, got := orig.Keystrokes[i], decoded.Keystrokes[i]
		if got.Kind != want.Kind || got.Category != want.Category || got.TimestampMs != want.TimestampMs {
			t.Errorf("keystroke %d = %+v, want %+v", i, got, want)
		}
	}
	if decoded.Keystrokes[1].DwellTimeMs == nil || *decoded.Keystrokes[1].DwellTimeMs != dwell {
		t.Error("dwell time lost in round trip")
	}
	if decoded.Keystrokes[0].DwellTimeMs != nil {
		t.Error("nil dwell time gained a value in round trip")
	}
	if len(decoded.Edits) != len(orig.Edits) {
		t.Fatalf("got %d edits, want %d", len(decoded.Edits), len(orig.Edits))
	}
	for i := range orig.Edits {
		if decoded.Edits[i] != orig.Edits[i] {
			t.Errorf("edit %d = %+v, want %+v", i, decoded.Edits[i], orig.Edits[i])
		}
	}
}
