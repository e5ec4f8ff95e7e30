// Package event defines the immutable value types fed into the analysis
// pipeline: keystroke events and document edit events.
//
// A Keystroke never carries the literal key that was pressed - only its
// keyclass.Category and timing. Events are treated as immutable once
// created; the pipeline copies slices rather than mutating them.
package event

import "keywitness/internal/keyclass"

// Kind distinguishes key press from key release.
type Kind string

const (
	KeyDown Kind = "keydown"
	KeyUp   Kind = "keyup"
)

// Keystroke is one key interaction.
//
// TimestampMs must be monotonic within a session. It may be
// session-relative or absolute; the pipeline only requires consistency
// within one session.
type Keystroke struct {
	Kind        Kind
	Category    keyclass.Category
	TimestampMs int64

	// DwellTimeMs is the time between this key's down and up. Present
	// on keyup when the matching keydown was observed.
	DwellTimeMs *float64

	// FlightTimeMs is the gap since the previous keyup. Present when a
	// prior keyup exists.
	FlightTimeMs *float64
}

// EditKind categorizes a document mutation.
type EditKind string

const (
	EditInsert  EditKind = "insert"
	EditDelete  EditKind = "delete"
	EditReplace EditKind = "replace"
	EditPaste   EditKind = "paste"
)

// EditSource identifies how an edit entered the document.
type EditSource string

const (
	SourceKeyboard EditSource = "keyboard"
	SourcePaste    EditSource = "paste"
)

// Edit is one document mutation. Edits feed only the paste-ratio and
// edit-volume signals; they do not contribute to window statistics.
type Edit struct {
	Kind          EditKind
	From          int
	To            int
	ContentLength int // 0 for pure deletions
	TimestampMs   int64
	Source        EditSource
}

// PasteRatio returns the fraction of inserted content that arrived via
// paste: pasted characters / all inserted characters. Returns 0 when no
// content was inserted at all.
func PasteRatio(edits []Edit) float64 {
	var total, pasted int64
	for _, e := range edits {
		if e.ContentLength <= 0 {
			continue
		}
		total += int64(e.ContentLength)
		if e.Source == SourcePaste || e.Kind == EditPaste {
			pasted += int64(e.ContentLength)
		}
	}
	if total == 0 {
		return 0
	}
	return float64(pasted) / float64(total)
}
