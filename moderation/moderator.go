// Package moderation censors forbidden words in message bodies before
// they are broadcast or persisted. Matching is resistant to casing,
// interleaved punctuation, and common leet substitutions.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

const DefaultReplacement = '*'

// Moderator holds a compiled Aho-Corasick automaton over the
// normalized word list. Building is expensive, Censor is not; build
// once at startup and share the instance.
type Moderator struct {
	machine     *goahocorasick.Machine
	replacement rune
}

// NewModerator compiles the automaton. Words are normalized the same
// way input text is, so "Bad-Word" and "b4dw0rd" both match a "badword"
// entry.
func NewModerator(words []string, replacement rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		if norm, _ := normalize([]rune(w)); len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, replacement: replacement}, nil
}

// Censor replaces each matched span with the replacement rune. The
// output always has the same rune length as the input; only the
// offending characters change.
func (m *Moderator) Censor(original string) string {
	runes := []rune(original)
	norm, origIdx := normalize(runes)
	if len(norm) == 0 {
		return original
	}

	matches := m.machine.MultiPatternSearch(norm, false)
	if len(matches) == 0 {
		return original
	}

	for _, match := range matches {
		start := match.Pos
		end := start + len(match.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		// Map the normalized span back to original rune positions,
		// covering any punctuation that sat inside the word.
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			runes[i] = m.replacement
		}
	}
	return string(runes)
}

// normalize lowercases, resolves leet substitutions, and strips noise.
// The second return maps every normalized rune back to its index in
// the input.
func normalize(input []rune) ([]rune, []int) {
	norm := make([]rune, 0, len(input))
	origIdx := make([]int, 0, len(input))

	for i, r := range input {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		norm = append(norm, unicode.ToLower(r))
		origIdx = append(origIdx, i)
	}
	return norm, origIdx
}

var leetTable = map[rune]rune{
	'4': 'a', '@': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'5': 's', '$': 's',
	'7': 't',
}

func unleet(r rune) rune {
	if plain, ok := leetTable[r]; ok {
		return plain
	}
	return r
}
