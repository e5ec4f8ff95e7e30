package event

import (
	"math"
	"testing"
)

func TestPasteRatio(t *testing.T) {
	tests := []struct {
		name     string
		edits    []Edit
		expected float64
	}{
		{
			name:     "no edits",
			edits:    nil,
			expected: 0,
		},
		{
			name: "pure deletions carry no content",
			edits: []Edit{
				{Kind: EditDelete, From: 10, To: 20, ContentLength: 0, Source: SourceKeyboard},
			},
			expected: 0,
		},
		{
			name: "all keyboard",
			edits: []Edit{
				{Kind: EditInsert, ContentLength: 40, Source: SourceKeyboard},
				{Kind: EditInsert, ContentLength: 60, Source: SourceKeyboard},
			},
			expected: 0,
		},
		{
			name: "half pasted",
			edits: []Edit{
				{Kind: EditInsert, ContentLength: 50, Source: SourceKeyboard},
				{Kind: EditPaste, ContentLength: 50, Source: SourcePaste},
			},
			expected: 0.5,
		},
		{
			name: "paste kind counts even with keyboard source",
			edits: []Edit{
				{Kind: EditPaste, ContentLength: 30, Source: SourceKeyboard},
				{Kind: EditInsert, ContentLength: 70, Source: SourceKeyboard},
			},
			expected: 0.3,
		},
		{
			name: "replace via paste",
			edits: []Edit{
				{Kind: EditReplace, ContentLength: 80, Source: SourcePaste},
				{Kind: EditInsert, ContentLength: 20, Source: SourceKeyboard},
			},
			expected: 0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PasteRatio(tt.edits)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("PasteRatio = %v, want %v", got, tt.expected)
			}
		})
	}
}
