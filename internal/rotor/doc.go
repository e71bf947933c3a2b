// Package rotor implements a deterministic, key-seeded three-rotor substitution cipher
// over a fixed alphabet of printable ASCII and Cyrillic characters.
// It is a reproducible, invertible transformation and makes no security claims.
package rotor
