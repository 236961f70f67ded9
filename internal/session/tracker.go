package session

import "unicode/utf8"

// Tracker turns a sequence of snapshots into deltas.
//
// The delta of a snapshot is its suffix past the length of the previous
// snapshot, counted in runes. A snapshot that is not longer than the
// previous one produces an empty delta; text is never retracted.
type Tracker struct {
	previous      string
	previousRunes int
}

// Next records snapshot and returns the newly added text.
func (t *Tracker) Next(snapshot string) string {
	n := utf8.RuneCountInString(snapshot)
	delta := ""
	if n > t.previousRunes {
		delta = suffixAfterRunes(snapshot, t.previousRunes)
	}
	t.previous = snapshot
	t.previousRunes = n
	return delta
}

// Content is the last snapshot seen.
func (t *Tracker) Content() string {
	return t.previous
}

func suffixAfterRunes(s string, skip int) string {
	for i := range s {
		if skip == 0 {
			return s[i:]
		}
		skip--
	}
	return ""
}
