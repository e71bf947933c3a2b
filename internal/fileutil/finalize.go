// Package fileutil provides shared file operation helpers.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// defaultPerm is used for outputs that do not exist yet.
const defaultPerm = 0o600

// TempContext holds state for an atomic file write operation.
type TempContext struct {
	Perm    os.FileMode
	TmpFile *os.File
	TmpName string
}

// NewTempContext creates a temp file next to outPath for atomic writing.
// An existing output keeps its permissions. Caller must defer CleanupOnError.
func NewTempContext(outPath string) (*TempContext, error) {
	perm := os.FileMode(defaultPerm)

	info, err := os.Stat(outPath)

	switch {
	case err == nil:
		if info.IsDir() {
			return nil, fmt.Errorf("output %q is a directory", outPath)
		}

		perm = info.Mode().Perm()
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("getting file info for %q: %w", outPath, err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(outPath), ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creating temporary file: %w", err)
	}

	return &TempContext{
		Perm:    perm,
		TmpFile: tmpFile,
		TmpName: tmpFile.Name(),
	}, nil
}

// CleanupOnError closes the temp file and removes it if the write failed.
func (tc *TempContext) CleanupOnError(errp *error) {
	tc.TmpFile.Close() //nolint:gosec // best-effort cleanup

	if *errp != nil {
		os.Remove(tc.TmpName) //nolint:gosec // best-effort cleanup
	}
}

// Commit sets permissions, closes the temp file and renames it over outPath.
func (tc *TempContext) Commit(outPath string) error {
	if err := os.Chmod(tc.TmpName, tc.Perm); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := tc.TmpFile.Close(); err != nil {
		return fmt.Errorf("closing temporary file: %w", err)
	}

	if err := os.Rename(tc.TmpName, outPath); err != nil {
		return fmt.Errorf("renaming output file: %w", err)
	}

	return nil
}

// FinalizeOutput returns the size of the written output.
func FinalizeOutput(outPath string) (int64, error) {
	outInfo, err := os.Stat(outPath)
	if err != nil {
		return 0, fmt.Errorf("stat output %q: %w", outPath, err)
	}

	return outInfo.Size(), nil
}

// WriteAtomic writes content to outPath so that readers see either the old file or the
// complete new one, never a partial write.
func WriteAtomic(outPath, content string) (size int64, err error) {
	tc, err := NewTempContext(outPath)
	if err != nil {
		return 0, fmt.Errorf("preparing atomic write: %w", err)
	}

	defer tc.CleanupOnError(&err)

	if _, err = tc.TmpFile.WriteString(content); err != nil {
		return 0, fmt.Errorf("writing content: %w", err)
	}

	if err = tc.TmpFile.Sync(); err != nil {
		return 0, fmt.Errorf("syncing temporary file: %w", err)
	}

	if err = tc.Commit(outPath); err != nil {
		return 0, err
	}

	size, err = FinalizeOutput(outPath)
	if err != nil {
		return 0, fmt.Errorf("finalizing output: %w", err)
	}

	return size, nil
}
