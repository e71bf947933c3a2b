package rotor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMalformedInput is returned when the text to process is not valid UTF-8.
var ErrMalformedInput = errors.New("malformed input: text is not valid UTF-8")

// cancelCheckInterval is how many characters are processed between context checks.
const cancelCheckInterval = 4096

// Direction selects whether a Cipher encrypts or decrypts.
type Direction int

const (
	// Encrypt runs the rotors forward.
	Encrypt Direction = iota
	// Decrypt runs the rotors in reverse.
	Decrypt
)

// String returns the name of the direction.
func (d Direction) String() string {
	switch d {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	}

	return "unknown"
}

// Cipher is a three-rotor stepping substitution engine.
// Rotors start at (0,0,0) and step odometer-style once per alphabet character.
// A Cipher holds mutable state and must not be shared between goroutines.
type Cipher struct {
	alphabet *Alphabet
	rotors   [3]*Rotor
}

// New creates a Cipher whose rotors are seeded with key, key*2 and key*3.
// Multiplication wraps on overflow, which keeps every int64 key usable.
func New(key int64, alphabet *Alphabet) *Cipher {
	return &Cipher{
		alphabet: alphabet,
		rotors: [3]*Rotor{
			NewRotor(key, alphabet),
			NewRotor(key*2, alphabet),
			NewRotor(key*3, alphabet),
		},
	}
}

// Positions returns the current offsets of the three rotors.
func (c *Cipher) Positions() [3]int {
	return [3]int{c.rotors[0].position, c.rotors[1].position, c.rotors[2].position}
}

// EncryptRune substitutes a single character and steps the rotors.
// Characters outside the alphabet are returned unchanged without stepping.
func (c *Cipher) EncryptRune(r rune) rune {
	idx, ok := c.alphabet.Index(r)
	if !ok {
		return r
	}

	idx, _ = c.alphabet.Index(c.rotors[0].forward(idx))
	idx, _ = c.alphabet.Index(c.rotors[1].forward(idx))
	out := c.rotors[2].forward(idx)

	c.advance()

	return out
}

// DecryptRune inverts EncryptRune for the same rotor positions and steps the rotors identically.
func (c *Cipher) DecryptRune(r rune) rune {
	if !c.alphabet.Contains(r) {
		return r
	}

	out := c.alphabet.At(c.rotors[2].backward(r))
	out = c.alphabet.At(c.rotors[1].backward(out))
	out = c.alphabet.At(c.rotors[0].backward(out))

	c.advance()

	return out
}

// Encrypt folds EncryptRune over text from left to right.
func (c *Cipher) Encrypt(text string) (string, error) {
	return c.Process(context.Background(), Encrypt, text)
}

// Decrypt folds DecryptRune over text from left to right.
func (c *Cipher) Decrypt(text string) (string, error) {
	return c.Process(context.Background(), Decrypt, text)
}

// Process transforms text in the given direction, checking ctx periodically.
// On cancellation the partial output is discarded and the context error is returned.
func (c *Cipher) Process(ctx context.Context, dir Direction, text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", ErrMalformedInput
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s not started: %w", dir, err)
	}

	transform := c.EncryptRune
	if dir == Decrypt {
		transform = c.DecryptRune
	}

	var builder strings.Builder

	builder.Grow(len(text))

	var count int

	for _, r := range text {
		count++
		if count%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return "", fmt.Errorf("%s interrupted after %d characters: %w", dir, count, err)
			}
		}

		builder.WriteRune(transform(r))
	}

	return builder.String(), nil
}

// advance steps rotor 1, carrying into rotor 2 and then rotor 3 on wrap-around.
func (c *Cipher) advance() {
	for _, r := range c.rotors {
		if !r.step() {
			return
		}
	}
}
