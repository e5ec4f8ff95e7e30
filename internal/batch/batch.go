// Package batch runs the analysis pipeline once over a complete session
// event log, producing the score fed to certificate issuance.
//
// It is a thin synchronous wrapper over the same pure functions the
// live analyzer delegates to, which is what guarantees the final
// certificate matches the live preview bit for bit.
package batch

import (
	"fmt"

	"keywitness/internal/anomaly"
	"keywitness/internal/event"
	"keywitness/internal/features"
	"keywitness/internal/scoring"
	"keywitness/internal/store"
	"keywitness/internal/window"
)

// Certifier computes certification scores from complete event logs.
type Certifier struct {
	windowSizeMs int64
	scoring      scoring.Config
}

// New creates a certifier. A non-positive window size falls back to the
// default.
func New(windowSizeMs int64, cfg scoring.Config) *Certifier {
	if windowSizeMs <= 0 {
		windowSizeMs = window.DefaultSizeMs
	}
	return &Certifier{windowSizeMs: windowSizeMs, scoring: cfg}
}

// Certification is the full output of one batch pass. Ownership passes
// to the caller; nothing is retained.
type Certification struct {
	Windows    []window.Vector
	Features   features.Features
	PasteRatio float64
	Alerts     []anomaly.Alert
	Result     scoring.Result
}

// Certify runs aggregate -> extract -> score over a session's events.
// Empty input is valid and yields score 0, Not Certified.
func (c *Certifier) Certify(keystrokes []event.Keystroke, edits []event.Edit) Certification {
	vectors := window.Aggregate(keystrokes, c.windowSizeMs)
	feats := features.Extract(vectors)
	pasteRatio := event.PasteRatio(edits)

	return Certification{
		Windows:    vectors,
		Features:   feats,
		PasteRatio: pasteRatio,
		Alerts:     anomaly.Detect(vectors, pasteRatio),
		Result:     scoring.Score(feats, c.scoring),
	}
}

// CertifySession loads a session's persisted event log and certifies
// it.
func (c *Certifier) CertifySession(st *store.Store, sessionID string) (Certification, error) {
	exists, err := st.SessionExists(sessionID)
	if err != nil {
		return Certification{}, err
	}
	if !exists {
		return Certification{}, fmt.Errorf("certify session %q: %w", sessionID, store.ErrSessionNotFound)
	}

	keystrokes, err := st.LoadKeystrokes(sessionID)
	if err != nil {
		return Certification{}, fmt.Errorf("certify session %q: %w", sessionID, err)
	}
	edits, err := st.LoadEdits(sessionID)
	if err != nil {
		return Certification{}, fmt.Errorf("certify session %q: %w", sessionID, err)
	}

	return c.Certify(keystrokes, edits), nil
}
