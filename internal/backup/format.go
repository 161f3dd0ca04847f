package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/pedigree/internal/store"
)

// FormatVersion is the archive layout written by Write.
const FormatVersion = 1

// MaxDecompressedSize bounds the payload accepted by Read (200MB).
const MaxDecompressedSize = 200 * 1024 * 1024

// Header is the plain-JSON first line of an archive.
type Header struct {
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	Checksum   string    `json:"checksum"`
	RunCount   int       `json:"run_count"`
	Compressed bool      `json:"compressed"`
}

// Archive is the payload of a backup: every stored run with its trajectories.
type Archive struct {
	Version   int         `json:"version"`
	CreatedAt time.Time   `json:"created_at"`
	Runs      []store.Run `json:"runs"`
}

// Write stores a as a header line followed by the gzip-compressed JSON
// payload. The header carries a SHA-256 of the compressed bytes.
func Write(path string, a *Archive) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(payload); err != nil {
		return fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	header, err := json.Marshal(Header{
		Version:    FormatVersion,
		CreatedAt:  a.CreatedAt,
		Checksum:   checksum(compressed.Bytes()),
		RunCount:   len(a.Runs),
		Compressed: true,
	})
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.Write(header)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	return f.Close()
}

// ReadHeader returns the header line of an archive without reading the payload.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return readHeader(bufio.NewReader(f))
}

func readHeader(r *bufio.Reader) (*Header, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}
	var h Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &h); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported archive version %d", h.Version)
	}
	return &h, nil
}

// Read loads an archive, verifying its checksum before decompressing.
func Read(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	if got := checksum(compressed); got != header.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, got)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	payload, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if len(payload) > MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	var a Archive
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("parsing archive: %w", err)
	}
	if len(a.Runs) != header.RunCount {
		return nil, fmt.Errorf("header announces %d runs, payload has %d", header.RunCount, len(a.Runs))
	}
	return &a, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
