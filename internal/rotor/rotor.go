package rotor

import (
	"math/rand/v2"
)

// pcgStream is the fixed second PCG seed word. Changing it changes every rotor wiring.
const pcgStream = 0x726f746f72

// Rotor is a key-seeded permutation of the alphabet plus a position counter.
// A Rotor is owned by a single Cipher and is not safe for concurrent use.
type Rotor struct {
	wiring   []rune
	inverse  map[rune]int
	position int
}

// NewRotor shuffles a copy of the alphabet with a generator seeded from seed.
// Equal seeds produce identical wirings on every machine and Go release.
func NewRotor(seed int64, alphabet *Alphabet) *Rotor {
	wiring := alphabet.Runes()

	shuffle(rand.NewPCG(uint64(seed), pcgStream), wiring) //nolint:gosec // two's complement reinterpretation

	inverse := make(map[rune]int, len(wiring))
	for i, r := range wiring {
		inverse[r] = i
	}

	return &Rotor{wiring: wiring, inverse: inverse}
}

// Wiring returns a copy of the rotor's permutation.
func (r *Rotor) Wiring() []rune {
	out := make([]rune, len(r.wiring))
	copy(out, r.wiring)

	return out
}

// Position returns the current rotor offset.
func (r *Rotor) Position() int {
	return r.position
}

// forward returns the wired character at input index idx, offset by the rotor position.
func (r *Rotor) forward(idx int) rune {
	return r.wiring[(r.position+idx)%len(r.wiring)]
}

// backward returns the alphabet index that forward maps to c.
func (r *Rotor) backward(c rune) int {
	n := len(r.wiring)

	return ((r.inverse[c]-r.position)%n + n) % n
}

// step advances the rotor by one and reports whether it wrapped around.
func (r *Rotor) step() bool {
	r.position++

	if r.position >= len(r.wiring) {
		r.position = 0

		return true
	}

	return false
}

// shuffle is a Fisher-Yates shuffle driven only by src.Uint64, so the result does not
// depend on the bounded-integer helpers of math/rand, which may change between releases.
func shuffle(src rand.Source, runes []rune) {
	for i := len(runes) - 1; i > 0; i-- {
		j := int(uniform(src, uint64(i+1))) //nolint:gosec // j <= i

		runes[i], runes[j] = runes[j], runes[i]
	}
}

// uniform returns an unbiased value in [0, n) by rejecting draws below 2^64 mod n.
func uniform(src rand.Source, n uint64) uint64 {
	threshold := -n % n

	for {
		if x := src.Uint64(); x >= threshold {
			return x % n
		}
	}
}
