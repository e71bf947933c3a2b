package rotor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"

	"github.com/idelchi/rotor/internal/rotor"
)

// Case is a single round-trip fixture.
type Case struct {
	Key  int64  `yaml:"key"`
	Text string `yaml:"text"`
}

// Group is a named collection of round-trip fixtures.
type Group struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Cases       []Case `yaml:"cases"`
}

func loadGroups(t *testing.T) []Group {
	t.Helper()

	files, err := filepath.Glob("testdata/*.yml")
	if err != nil {
		t.Fatalf("globbing testdata: %v", err)
	}

	if len(files) == 0 {
		t.Fatal("no testdata/*.yml files found")
	}

	var groups []Group

	for _, f := range files {
		data, err := os.ReadFile(f) //nolint:gosec // test helper reads known testdata files
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}

		var parsed []Group
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("parsing %s: %v", f, err)
		}

		groups = append(groups, parsed...)
	}

	return groups
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	alphabet := rotor.NewAlphabet()

	for _, group := range loadGroups(t) {
		t.Run(group.Name, func(t *testing.T) {
			t.Parallel()

			for _, tc := range group.Cases {
				encrypted, err := rotor.New(tc.Key, alphabet).Encrypt(tc.Text)
				if err != nil {
					t.Fatalf("key %d: encrypt: %v", tc.Key, err)
				}

				if len([]rune(encrypted)) != len([]rune(tc.Text)) {
					t.Errorf("key %d: ciphertext length %d, want %d", tc.Key, len([]rune(encrypted)), len([]rune(tc.Text)))
				}

				decrypted, err := rotor.New(tc.Key, alphabet).Decrypt(encrypted)
				if err != nil {
					t.Fatalf("key %d: decrypt: %v", tc.Key, err)
				}

				if decrypted != tc.Text {
					t.Errorf("key %d: round trip = %q, want %q", tc.Key, decrypted, tc.Text)
				}
			}
		})
	}
}

func TestEncryptDeterministic(t *testing.T) {
	t.Parallel()

	alphabet := rotor.NewAlphabet()
	text := "Детерминизм is reproducible"

	first, err := rotor.New(5, alphabet).Encrypt(text)
	if err != nil {
		t.Fatal(err)
	}

	second, err := rotor.New(5, alphabet).Encrypt(text)
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Errorf("same key and text produced %q and %q", first, second)
	}

	if first == text {
		t.Error("ciphertext equals plaintext")
	}
}

func TestWrongKeyDoesNotDecrypt(t *testing.T) {
	t.Parallel()

	alphabet := rotor.NewAlphabet()
	text := "attack at dawn, атака на рассвете"

	encrypted, err := rotor.New(5, alphabet).Encrypt(text)
	if err != nil {
		t.Fatal(err)
	}

	decrypted, err := rotor.New(6, alphabet).Decrypt(encrypted)
	if err != nil {
		t.Fatal(err)
	}

	if decrypted == text {
		t.Error("decrypting with a different key reproduced the plaintext")
	}
}

func TestPassthroughDoesNotStep(t *testing.T) {
	t.Parallel()

	alphabet := rotor.NewAlphabet()
	cipher := rotor.New(11, alphabet)

	for _, r := range []rune{'\n', '\t', 'é', '🙂', 0x530} {
		if got := cipher.EncryptRune(r); got != r {
			t.Errorf("EncryptRune(%U) = %U, want unchanged", r, got)
		}

		if got := cipher.DecryptRune(r); got != r {
			t.Errorf("DecryptRune(%U) = %U, want unchanged", r, got)
		}
	}

	if pos := cipher.Positions(); pos != [3]int{} {
		t.Errorf("positions after passthrough = %v, want [0 0 0]", pos)
	}

	// Interleaving passthrough characters must not change the alphabet characters' output.
	plain, err := rotor.New(11, alphabet).Encrypt("abc")
	if err != nil {
		t.Fatal(err)
	}

	mixed, err := rotor.New(11, alphabet).Encrypt("a\nb\tc")
	if err != nil {
		t.Fatal(err)
	}

	if strings.NewReplacer("\n", "", "\t", "").Replace(mixed) != plain {
		t.Errorf("passthrough characters perturbed output: %q vs %q", mixed, plain)
	}

	if runes := []rune(mixed); runes[1] != '\n' || runes[3] != '\t' {
		t.Errorf("passthrough characters moved: %q", mixed)
	}
}

func TestOdometerStepping(t *testing.T) {
	t.Parallel()

	alphabet := rotor.NewAlphabet()
	size := alphabet.Len()

	tests := []struct {
		name  string
		chars int
		want  [3]int
	}{
		{name: "one", chars: 1, want: [3]int{1, 0, 0}},
		{name: "below wrap", chars: size - 1, want: [3]int{size - 1, 0, 0}},
		{name: "first carry", chars: size, want: [3]int{0, 1, 0}},
		{name: "carry plus one", chars: size + 1, want: [3]int{1, 1, 0}},
		{name: "second carry", chars: size * size, want: [3]int{0, 0, 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cipher := rotor.New(1, alphabet)

			if _, err := cipher.Encrypt(strings.Repeat("A", tc.chars)); err != nil {
				t.Fatal(err)
			}

			if got := cipher.Positions(); got != tc.want {
				t.Errorf("positions = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDecryptStepsInLockStep(t *testing.T) {
	t.Parallel()

	alphabet := rotor.NewAlphabet()
	text := strings.Repeat("Ж", alphabet.Len()+3)

	enc := rotor.New(2, alphabet)

	encrypted, err := enc.Encrypt(text)
	if err != nil {
		t.Fatal(err)
	}

	dec := rotor.New(2, alphabet)

	if _, err := dec.Decrypt(encrypted); err != nil {
		t.Fatal(err)
	}

	if enc.Positions() != dec.Positions() {
		t.Errorf("positions drifted: encrypt %v, decrypt %v", enc.Positions(), dec.Positions())
	}
}

func TestMalformedInput(t *testing.T) {
	t.Parallel()

	_, err := rotor.New(1, rotor.NewAlphabet()).Encrypt("ok\xffnot ok")
	if !errors.Is(err, rotor.ErrMalformedInput) {
		t.Errorf("error = %v, want %v", err, rotor.ErrMalformedInput)
	}
}

func TestProcessCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rotor.New(1, rotor.NewAlphabet()).Process(ctx, rotor.Encrypt, strings.Repeat("x", 10_000))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want %v", err, context.Canceled)
	}
}
