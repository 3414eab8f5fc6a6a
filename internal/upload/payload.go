// Package upload turns raw upload bodies into CSV bytes ready for parsing.
package upload

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrTooLarge is returned when a payload exceeds Limits.MaxBytes, or its
	// decompressed form exceeds Limits.MaxDecompressedBytes.
	ErrTooLarge = errors.New("upload too large")
	// ErrUnsupportedType is returned for file names outside Limits.AllowedTypes.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrEmpty is returned for a zero-byte payload.
	ErrEmpty = errors.New("empty upload")
)

var gzipMagic = []byte{0x1f, 0x8b}

// Limits bounds what ReadPayload accepts.
type Limits struct {
	MaxBytes             int64
	MaxDecompressedBytes int64
	AllowedTypes         []string // lower-case suffixes including the dot
}

// DefaultLimits matches the config defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:             50 << 20,
		MaxDecompressedBytes: 200 << 20,
		AllowedTypes:         []string{".csv", ".csv.gz", ".txt"},
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxBytes <= 0 {
		l.MaxBytes = d.MaxBytes
	}
	if l.MaxDecompressedBytes <= 0 {
		l.MaxDecompressedBytes = d.MaxDecompressedBytes
	}
	if len(l.AllowedTypes) == 0 {
		l.AllowedTypes = d.AllowedTypes
	}
	return l
}

// Payload is an accepted upload with any gzip layer removed.
type Payload struct {
	Name       string
	Data       []byte
	Compressed bool // the body arrived gzipped
}

// CheckType reports ErrUnsupportedType unless name ends in an allowed suffix.
func CheckType(name string, limits Limits) error {
	limits = limits.withDefaults()
	lower := strings.ToLower(filepath.Base(name))
	for _, ext := range limits.AllowedTypes {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedType, name)
}

// ReadPayload reads an upload body. Bodies starting with the gzip magic are
// decompressed regardless of the file name.
func ReadPayload(name string, r io.Reader, limits Limits) (*Payload, error) {
	limits = limits.withDefaults()
	if err := CheckType(name, limits); err != nil {
		return nil, err
	}

	data, err := readLimited(r, limits.MaxBytes)
	if err != nil {
		return nil, err
	}
	return decode(name, data, limits)
}

// DecodeBase64 accepts a standard base64 body, as posted by the JSON upload
// endpoint.
func DecodeBase64(name, encoded string, limits Limits) (*Payload, error) {
	limits = limits.withDefaults()
	if err := CheckType(name, limits); err != nil {
		return nil, err
	}
	if int64(base64.StdEncoding.DecodedLen(len(encoded))) > limits.MaxBytes+2 {
		return nil, ErrTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 data: %w", err)
	}
	if int64(len(data)) > limits.MaxBytes {
		return nil, ErrTooLarge
	}
	return decode(name, data, limits)
}

func decode(name string, data []byte, limits Limits) (*Payload, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	p := &Payload{Name: displayName(name), Data: data}
	if !bytes.HasPrefix(data, gzipMagic) {
		return p, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	plain, err := readLimited(zr, limits.MaxDecompressedBytes)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	if len(plain) == 0 {
		return nil, ErrEmpty
	}
	p.Data = plain
	p.Compressed = true
	return p, nil
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, ErrTooLarge
	}
	return data, nil
}

// displayName strips directories and the .gz suffix.
func displayName(name string) string {
	base := filepath.Base(name)
	if strings.HasSuffix(strings.ToLower(base), ".gz") {
		base = base[:len(base)-3]
	}
	return base
}
