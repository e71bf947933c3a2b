package rotor_test

import (
	"slices"
	"testing"

	"github.com/idelchi/rotor/internal/rotor"
)

func TestAlphabet(t *testing.T) {
	t.Parallel()

	alphabet := rotor.NewAlphabet()

	const want = 95 + 256 + 48
	if alphabet.Len() != want {
		t.Fatalf("alphabet length = %d, want %d", alphabet.Len(), want)
	}

	runes := alphabet.Runes()
	if !slices.IsSorted(runes) {
		t.Error("alphabet is not sorted by codepoint")
	}

	if len(slices.Compact(slices.Clone(runes))) != len(runes) {
		t.Error("alphabet contains duplicates")
	}

	for i, r := range runes {
		idx, ok := alphabet.Index(r)
		if !ok || idx != i {
			t.Fatalf("Index(%q) = %d, %v; want %d, true", r, idx, ok, i)
		}
	}

	for _, r := range []rune{' ', '~', 'Ѐ', 'ӿ', 'Ԁ', 'ԯ'} {
		if !alphabet.Contains(r) {
			t.Errorf("alphabet should contain %q", r)
		}
	}

	for _, r := range []rune{'\n', '\t', 0x7F, 0x3FF, 0x530, '🙂'} {
		if alphabet.Contains(r) {
			t.Errorf("alphabet should not contain %U", r)
		}
	}

	if !slices.Equal(runes, rotor.NewAlphabet().Runes()) {
		t.Error("two alphabets built in the same process differ")
	}
}

func TestRotorDeterministic(t *testing.T) {
	t.Parallel()

	alphabet := rotor.NewAlphabet()

	for _, seed := range []int64{0, 1, 5, 10, 15, -3, 1 << 62} {
		first := rotor.NewRotor(seed, alphabet).Wiring()
		second := rotor.NewRotor(seed, alphabet).Wiring()

		if !slices.Equal(first, second) {
			t.Errorf("seed %d: wirings differ between constructions", seed)
		}
	}
}

func TestRotorIsPermutation(t *testing.T) {
	t.Parallel()

	alphabet := rotor.NewAlphabet()

	for _, seed := range []int64{0, 7, 99, -1} {
		wiring := rotor.NewRotor(seed, alphabet).Wiring()

		sorted := slices.Clone(wiring)
		slices.Sort(sorted)

		if !slices.Equal(sorted, alphabet.Runes()) {
			t.Errorf("seed %d: wiring is not a permutation of the alphabet", seed)
		}

		if slices.Equal(wiring, alphabet.Runes()) {
			t.Errorf("seed %d: wiring is the identity", seed)
		}
	}
}

func TestRotorSeedsDiffer(t *testing.T) {
	t.Parallel()

	alphabet := rotor.NewAlphabet()

	a := rotor.NewRotor(5, alphabet).Wiring()
	b := rotor.NewRotor(10, alphabet).Wiring()
	c := rotor.NewRotor(15, alphabet).Wiring()

	if slices.Equal(a, b) || slices.Equal(b, c) || slices.Equal(a, c) {
		t.Error("rotors seeded with key, key*2 and key*3 should differ")
	}
}

func TestRotorStartsAtZero(t *testing.T) {
	t.Parallel()

	if pos := rotor.NewRotor(3, rotor.NewAlphabet()).Position(); pos != 0 {
		t.Errorf("new rotor position = %d, want 0", pos)
	}
}
