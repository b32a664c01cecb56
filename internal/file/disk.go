package file

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

const healthcheckName = ".healthcheck"

// Disk is one storage directory of the layout (uploads, tmp or converted).
type Disk struct {
	dir string
}

// Saved describes a file written by Disk.Save.
type Saved struct {
	Path     string
	Size     int64
	Checksum string
}

// NewDisk creates dir if needed.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory %s: %w", dir, err)
	}
	return &Disk{dir: dir}, nil
}

// Dir returns the directory backing the disk.
func (d *Disk) Dir() string {
	return d.dir
}

// Path returns the location of name inside the directory.
func (d *Disk) Path(name string) string {
	return filepath.Join(d.dir, name)
}

// Save streams r into name, hashing on the fly. The file only becomes visible
// once fully written. Content longer than limit is discarded with ErrFileTooLarge.
func (d *Disk) Save(name string, r io.Reader, limit int64) (Saved, error) {
	path := d.Path(name)

	hasher := sha256.New()
	counter := &countingWriter{}
	src := io.Reader(r)
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}

	if err := atomic.WriteFile(path, io.TeeReader(src, io.MultiWriter(hasher, counter))); err != nil {
		return Saved{}, fmt.Errorf("write %s: %w", name, err)
	}

	if limit > 0 && counter.n > limit {
		_ = os.Remove(path)
		return Saved{}, ErrFileTooLarge
	}

	return Saved{Path: path, Size: counter.n, Checksum: hexSum(hasher)}, nil
}

// Adopt moves src into the directory as name. Falls back to copy-and-delete
// when a rename is not possible, e.g. across filesystems.
func (d *Disk) Adopt(src, name string) (string, error) {
	dst := d.Path(name)
	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if err := atomic.WriteFile(dst, in); err != nil {
		return "", fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := os.Remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("remove %s after copy: %w", src, err)
	}
	return dst, nil
}

// Remove deletes path. A file that is already gone is not an error.
func (d *Disk) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Probe writes and removes a marker file to prove the directory is writable.
func (d *Disk) Probe() error {
	path := d.Path(healthcheckName)
	if err := os.WriteFile(path, []byte("ok"), 0o600); err != nil {
		return err
	}
	return os.Remove(path)
}

// Digest returns the size and SHA-256 of the file at path.
func Digest(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return 0, "", fmt.Errorf("hash %s: %w", path, err)
	}
	return size, hexSum(hasher), nil
}

func hexSum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}
