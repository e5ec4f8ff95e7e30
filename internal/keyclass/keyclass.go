// Package keyclass maps raw key identifiers to privacy-safe categories.
//
// IMPORTANT: This package is the only place raw key values are ever seen,
// and it never retains them. This is a critical privacy distinction:
//   - Keylogger: Records "h", "e", "l", "l", "o" → "hello"
//   - This package: Records "letter, letter, letter, letter, letter"
//
// Everything downstream (window aggregation, feature extraction, scoring)
// operates on categories and timings only.
package keyclass

// Category is the privacy-safe classification of a key.
type Category string

const (
	// CategoryLetter covers Latin letters and Hangul jamo/syllables.
	CategoryLetter Category = "letter"
	// CategoryNumber covers single decimal digits.
	CategoryNumber Category = "number"
	// CategoryPunct covers any other single printable character.
	CategoryPunct Category = "punct"
	// CategoryModifier covers named modifier keys (Shift, Control, ...).
	CategoryModifier Category = "modifier"
	// CategoryNavigation covers arrows, Home/End, paging and Tab.
	// Navigation keys double as the correction signal downstream.
	CategoryNavigation Category = "navigation"
	// CategoryFunction covers F1 through F24.
	CategoryFunction Category = "function"
	// CategoryOther covers everything else (Enter, Escape, IME keys, ...).
	CategoryOther Category = "other"
)

// modifierKeys are the named modifier key identifiers.
var modifierKeys = map[string]struct{}{
	"Shift":    {},
	"Control":  {},
	"Alt":      {},
	"Meta":     {},
	"CapsLock": {},
}

// navigationKeys are the named navigation key identifiers.
var navigationKeys = map[string]struct{}{
	"ArrowUp":    {},
	"ArrowDown":  {},
	"ArrowLeft":  {},
	"ArrowRight": {},
	"Home":       {},
	"End":        {},
	"PageUp":     {},
	"PageDown":   {},
	"Tab":        {},
}

// functionKeys are F1 through F24.
var functionKeys = buildFunctionKeys()

func buildFunctionKeys() map[string]struct{} {
	keys := make(map[string]struct{}, 24)
	names := []string{
		"F1", "F2", "F3", "F4", "F5", "F6", "F7", "F8", "F9", "F10",
		"F11", "F12", "F13", "F14", "F15", "F16", "F17", "F18", "F19",
		"F20", "F21", "F22", "F23", "F24",
	}
	for _, n := range names {
		keys[n] = struct{}{}
	}
	return keys
}

// Classify maps a raw key identifier to its Category.
// It has no failure mode: every input maps to some category.
// The rawKey argument is never stored.
func Classify(rawKey string) Category {
	runes := []rune(rawKey)
	if len(runes) == 1 {
		r := runes[0]
		switch {
		case isLetter(r):
			return CategoryLetter
		case r >= '0' && r <= '9':
			return CategoryNumber
		default:
			return CategoryPunct
		}
	}

	if _, ok := modifierKeys[rawKey]; ok {
		return CategoryModifier
	}
	if _, ok := navigationKeys[rawKey]; ok {
		return CategoryNavigation
	}
	if _, ok := functionKeys[rawKey]; ok {
		return CategoryFunction
	}
	return CategoryOther
}

// isLetter reports whether r is a Latin letter or falls in the Hangul
// jamo, compatibility jamo, or precomposed syllable ranges.
func isLetter(r rune) bool {
	if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
		return true
	}
	// Hangul jamo
	if r >= 0x1100 && r <= 0x11FF {
		return true
	}
	// Hangul compatibility jamo
	if r >= 0x3130 && r <= 0x318F {
		return true
	}
	// Hangul syllables
	if r >= 0xAC00 && r <= 0xD7A3 {
		return true
	}
	return false
}
