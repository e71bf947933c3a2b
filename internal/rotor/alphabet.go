package rotor

import (
	"slices"
)

// span is an inclusive range of codepoints included in the alphabet.
type span struct {
	first, last rune
}

// alphabetSpans lists the ranges making up the alphabet.
// Order does not matter, the result is sorted and deduplicated.
//
//nolint:gochecknoglobals
var alphabetSpans = []span{
	{first: 32, last: 126},        // printable ASCII
	{first: 0x0400, last: 0x04FF}, // Cyrillic
	{first: 0x0500, last: 0x052F}, // Cyrillic Supplement
}

// Alphabet is the ordered, immutable set of characters the cipher operates on.
// It is safe for concurrent read-only use.
type Alphabet struct {
	runes []rune
	index map[rune]int
}

// NewAlphabet builds the alphabet. Every call yields the same sequence.
func NewAlphabet() *Alphabet {
	var runes []rune

	for _, s := range alphabetSpans {
		for r := s.first; r <= s.last; r++ {
			runes = append(runes, r)
		}
	}

	slices.Sort(runes)
	runes = slices.Compact(runes)

	index := make(map[rune]int, len(runes))
	for i, r := range runes {
		index[r] = i
	}

	return &Alphabet{runes: runes, index: index}
}

// Len returns the number of characters in the alphabet.
func (a *Alphabet) Len() int {
	return len(a.runes)
}

// At returns the character at position i.
func (a *Alphabet) At(i int) rune {
	return a.runes[i]
}

// Index returns the position of r, and false if r is not part of the alphabet.
func (a *Alphabet) Index(r rune) (int, bool) {
	i, ok := a.index[r]

	return i, ok
}

// Contains reports whether r is part of the alphabet.
func (a *Alphabet) Contains(r rune) bool {
	_, ok := a.index[r]

	return ok
}

// Runes returns a copy of the alphabet's characters in order.
func (a *Alphabet) Runes() []rune {
	return slices.Clone(a.runes)
}
