package compress

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", AlgorithmZSTD, false},
		{"zstd", AlgorithmZSTD, false},
		{"gzip", AlgorithmGzip, false},
		{"none", AlgorithmNone, false},
		{"brotli", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAlgorithm(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriterReader(t *testing.T) {
	payload := []byte(strings.Repeat(`{"type":"user_created","message":"created user u5"}`+"\n", 50))

	for _, a := range []Algorithm{AlgorithmZSTD, AlgorithmGzip, AlgorithmNone} {
		t.Run(string(a), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, a)
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}
			if _, err := w.Write(payload); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if a != AlgorithmNone && buf.Len() >= len(payload) {
				t.Errorf("compressed size %d not smaller than %d", buf.Len(), len(payload))
			}

			r, err := NewReader(&buf, a)
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			defer r.Close()
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Error("round trip mismatch")
			}
		})
	}
}

func TestArchiveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "audit.log.1")
	content := []byte("line one\nline two\n")
	if err := os.WriteFile(src, content, 0640); err != nil {
		t.Fatal(err)
	}

	dst, err := ArchiveFile(src, AlgorithmZSTD)
	if err != nil {
		t.Fatalf("ArchiveFile: %v", err)
	}
	if dst != src+".zst" {
		t.Errorf("dst = %s", dst)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source file should be removed")
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	r, err := NewReader(f, AlgorithmZSTD)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if !bytes.Equal(got, content) {
		t.Errorf("archive content = %q", got)
	}
}

func TestArchiveFile_None(t *testing.T) {
	src := filepath.Join(t.TempDir(), "audit.log.1")
	if err := os.WriteFile(src, []byte("x"), 0640); err != nil {
		t.Fatal(err)
	}
	dst, err := ArchiveFile(src, AlgorithmNone)
	if err != nil || dst != src {
		t.Fatalf("ArchiveFile = %s, %v", dst, err)
	}
}
