// Package manifest records how an output was produced, in a sidecar file next to it.
//
// The cipher output itself carries no metadata. Decrypting needs the same key and chunk count
// that were used to encrypt, so the manifest stores the chunk count, a fingerprint of the key,
// and a digest of the plaintext for verification after decryption.
package manifest

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tidwall/jsonc"
	"github.com/zeebo/blake3"

	"github.com/idelchi/rotor/internal/chunk"
)

// Version is the manifest format version written by this package.
const Version = 1

// Suffix is appended to an artifact's path to name its manifest.
const Suffix = ".manifest.json"

// keyContext domain-separates key fingerprints from other blake3 uses.
const keyContext = "rotor 2024-11-05 key fingerprint v1"

var (
	// ErrInvalid is returned for manifests that cannot describe a run.
	ErrInvalid = errors.New("invalid manifest")
	// ErrKeyMismatch is returned when a key does not match the manifest's fingerprint.
	ErrKeyMismatch = errors.New("key does not match manifest")
	// ErrDigestMismatch is returned when decrypted text differs from the recorded plaintext.
	ErrDigestMismatch = errors.New("decrypted text does not match manifest digest")
)

// Manifest describes an encryption run.
type Manifest struct {
	Version         int    `json:"version"`
	Action          string `json:"action"`
	Chunks          int    `json:"chunks"`
	AlphabetSize    int    `json:"alphabet_size"`
	KeyFingerprint  string `json:"key_fingerprint"`
	PlaintextDigest string `json:"plaintext_digest"`
}

// New creates a manifest for encrypting plaintext with key into the given number of chunks.
func New(key int64, chunks, alphabetSize int, plaintext string) Manifest {
	return Manifest{
		Version:         Version,
		Action:          "encrypt",
		Chunks:          chunks,
		AlphabetSize:    alphabetSize,
		KeyFingerprint:  Fingerprint(key),
		PlaintextDigest: Digest(plaintext),
	}
}

// Path returns the manifest path belonging to artifact.
func Path(artifact string) string {
	return artifact + Suffix
}

// Fingerprint derives a non-reversible identifier for key.
func Fingerprint(key int64) string {
	out := make([]byte, 16)
	blake3.DeriveKey(keyContext, []byte(strconv.FormatInt(key, 10)), out)

	return hex.EncodeToString(out)
}

// Digest returns the hex blake3-256 digest of text.
func Digest(text string) string {
	sum := blake3.Sum256([]byte(text))

	return hex.EncodeToString(sum[:])
}

// Marshal renders the manifest as indented JSON.
func (m Manifest) Marshal() (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}

	return string(data) + "\n", nil
}

// Validate checks that the manifest can drive a decryption.
func (m Manifest) Validate(alphabetSize int) error {
	switch {
	case m.Version != Version:
		return fmt.Errorf("%w: unsupported version %d", ErrInvalid, m.Version)
	case m.Chunks < 1 || m.Chunks > chunk.MaxCount:
		return fmt.Errorf("%w: chunk count %d, want 1 to %d", ErrInvalid, m.Chunks, chunk.MaxCount)
	case m.AlphabetSize != alphabetSize:
		return fmt.Errorf("%w: alphabet size %d, expected %d", ErrInvalid, m.AlphabetSize, alphabetSize)
	case m.KeyFingerprint == "" || m.PlaintextDigest == "":
		return fmt.Errorf("%w: missing fingerprint or digest", ErrInvalid)
	}

	return nil
}

// CheckKey reports whether key produced this manifest.
func (m Manifest) CheckKey(key int64) error {
	if Fingerprint(key) != m.KeyFingerprint {
		return ErrKeyMismatch
	}

	return nil
}

// Verify compares decrypted text against the recorded plaintext digest.
func (m Manifest) Verify(text string) error {
	if Digest(text) != m.PlaintextDigest {
		return ErrDigestMismatch
	}

	return nil
}

// Load reads a manifest. Comments and trailing commas are tolerated.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest %q: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(jsonc.ToJSONInPlace(data), &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: parsing %q: %w", ErrInvalid, path, err)
	}

	return m, nil
}
