// Package logfile keeps the full raw output of a run in an append-only
// scratch file, independent of any bounded on-screen buffer.
package logfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// File is a scratch log file. The zero value is not usable; call New.
type File struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// New returns a scratch file named dbdump-<uuid>.log under dir
func New(fs afero.Fs, dir string) *File {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if dir == "" {
		dir = os.TempDir()
	}
	return &File{
		fs:   fs,
		path: filepath.Join(dir, fmt.Sprintf("dbdump-%s.log", uuid.New().String())),
	}
}

// Path returns the location of the file
func (f *File) Path() string {
	return f.path
}

// Init creates the file if it does not exist, keeping existing content
func (f *File) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fs.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	fh, err := f.fs.OpenFile(f.path, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	return fh.Close()
}

// Reset truncates the file
func (f *File) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := f.fs.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to reset log file: %w", err)
	}
	return fh.Close()
}

// Write appends content as-is
func (f *File) Write(content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := f.fs.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if _, err := fh.WriteString(content); err != nil {
		fh.Close()
		return fmt.Errorf("failed to write log file: %w", err)
	}
	return fh.Close()
}

// Delete removes the file; a missing file is not an error
func (f *File) Delete() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fs.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete log file: %w", err)
	}
	return nil
}

// Read returns the whole content
func (f *File) Read() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Size returns the file size in bytes, or 0 when it does not exist
func (f *File) Size() int64 {
	fi, err := f.fs.Stat(f.path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
