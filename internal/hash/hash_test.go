package hash

import (
	"os"
	"path/filepath"
	"testing"
)

type sizes map[string]int64

func (s sizes) SizeOf(path string) (int64, error) {
	if n, ok := s[path]; ok {
		return n, nil
	}
	return 0, os.ErrNotExist
}

func TestSHA256Hasher_HashFile(t *testing.T) {
	tmpDir := t.TempDir()
	hasher := NewSHA256Hasher()

	a := filepath.Join(tmpDir, "a.safetensors")
	b := filepath.Join(tmpDir, "b.safetensors")
	c := filepath.Join(tmpDir, "c.safetensors")
	if err := os.WriteFile(a, []byte("hello world"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(b, []byte("hello world"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(c, []byte("hello there"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	hashA, err := hasher.HashFile(a)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	const want = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if hashA != want {
		t.Errorf("HashFile = %s, want %s", hashA, want)
	}

	hashB, _ := hasher.HashFile(b)
	hashC, _ := hasher.HashFile(c)
	if hashA != hashB {
		t.Error("identical content should hash equal")
	}
	if hashA == hashC {
		t.Error("different content should hash differently")
	}

	if _, err := hasher.HashFile(filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestIdentical(t *testing.T) {
	tests := []struct {
		name      string
		sizes     sizes
		hashes    map[string]string
		want      bool
		wantErr   bool
		wantCalls int
	}{
		{
			name:      "size mismatch skips hashing",
			sizes:     sizes{"live": 10, "backup": 11},
			want:      false,
			wantCalls: 0,
		},
		{
			name:      "same size same hash",
			sizes:     sizes{"live": 10, "backup": 10},
			hashes:    map[string]string{"live": "h", "backup": "h"},
			want:      true,
			wantCalls: 2,
		},
		{
			name:      "same size different hash",
			sizes:     sizes{"live": 10, "backup": 10},
			want:      false,
			wantCalls: 2,
		},
		{
			name:    "missing backup",
			sizes:   sizes{"live": 10},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFakeHasher()
			for p, v := range tt.hashes {
				h.SetHash(p, v)
			}

			got, err := Identical(h, tt.sizes, "live", "backup")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Identical() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Identical() = %v, want %v", got, tt.want)
			}
			if !tt.wantErr && h.Calls() != tt.wantCalls {
				t.Errorf("hash calls = %d, want %d", h.Calls(), tt.wantCalls)
			}
		})
	}
}
