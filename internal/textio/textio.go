// Package textio reads text files whose encoding is not known in advance.
package textio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrEncoding is returned when no candidate encoding decodes a file cleanly.
var ErrEncoding = errors.New("unable to determine file encoding")

// Encoding is a named candidate decoder.
type Encoding struct {
	// Name is the conventional label of the encoding
	Name string

	// charmap is nil for UTF-8
	charmap *charmap.Charmap
}

// Candidates lists the encodings tried, in order.
//
//nolint:gochecknoglobals
var Candidates = []Encoding{
	{Name: "utf-8"},
	{Name: "windows-1251", charmap: charmap.Windows1251},
	{Name: "cp866", charmap: charmap.CodePage866},
	{Name: "koi8-r", charmap: charmap.KOI8R},
	{Name: "iso-8859-5", charmap: charmap.ISO8859_5},
}

// ReadFile reads path and decodes it with the first candidate encoding that accepts every byte.
// It returns the decoded text and the name of the encoding used.
func ReadFile(path string) (text, encoding string, err error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", "", fmt.Errorf("reading %q: %w", path, err)
	}

	text, encoding, err = Decode(data)
	if err != nil {
		return "", "", fmt.Errorf("%q: %w", path, err)
	}

	return text, encoding, nil
}

// Decode converts data to a string using the first candidate that decodes it without error.
func Decode(data []byte) (text, encoding string, err error) {
	for _, enc := range Candidates {
		if text, ok := enc.decode(data); ok {
			return text, enc.Name, nil
		}
	}

	return "", "", ErrEncoding
}

// decode reports false if data contains a byte sequence the encoding does not define.
func (e Encoding) decode(data []byte) (string, bool) {
	if e.charmap == nil {
		if !utf8.Valid(data) {
			return "", false
		}

		return string(data), true
	}

	var seen [256]bool

	for _, b := range data {
		if seen[b] {
			continue
		}

		seen[b] = true

		if e.charmap.DecodeByte(b) == utf8.RuneError {
			return "", false
		}
	}

	decoded, err := e.charmap.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}

	return string(decoded), true
}
