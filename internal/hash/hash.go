// Package hash compares file contents.
//
// comfydepot uses SHA-256 to decide whether a live model file and its backup
// copy are byte-identical before deleting one of them. Sizes are compared
// first so large weight files are only read when they could match.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
)

// Hasher provides an abstraction for file hashing operations.
type Hasher interface {
	// HashFile computes the hash of the file at the given path.
	HashFile(path string) (string, error)
}

// SHA256Hasher implements Hasher using SHA-256.
type SHA256Hasher struct{}

// NewSHA256Hasher creates a new SHA256Hasher.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// HashFile computes the SHA-256 hash of the file at the given path.
func (h *SHA256Hasher) HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Sizer reports file sizes; fsops.Probe satisfies it.
type Sizer interface {
	SizeOf(path string) (int64, error)
}

// Identical reports whether a and b have the same size and hash.
func Identical(h Hasher, s Sizer, a, b string) (bool, error) {
	sizeA, err := s.SizeOf(a)
	if err != nil {
		return false, err
	}
	sizeB, err := s.SizeOf(b)
	if err != nil {
		return false, err
	}
	if sizeA != sizeB {
		return false, nil
	}

	hashA, err := h.HashFile(a)
	if err != nil {
		return false, err
	}
	hashB, err := h.HashFile(b)
	if err != nil {
		return false, err
	}
	return hashA == hashB, nil
}

// FakeHasher implements Hasher with predetermined hashes for testing.
// Unknown paths hash to their own name, so distinct files differ.
type FakeHasher struct {
	mu     sync.Mutex
	hashes map[string]string
	calls  int
}

// NewFakeHasher creates a new FakeHasher.
func NewFakeHasher() *FakeHasher {
	return &FakeHasher{hashes: make(map[string]string)}
}

// SetHash sets the hash for a specific path.
func (h *FakeHasher) SetHash(path, hash string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hashes[path] = hash
}

// Calls returns how many files have been hashed.
func (h *FakeHasher) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// HashFile returns the predetermined hash for the given path.
func (h *FakeHasher) HashFile(path string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if hash, ok := h.hashes[path]; ok {
		return hash, nil
	}
	return "path:" + path, nil
}
