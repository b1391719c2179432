// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package samples

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func TestCompressionString(t *testing.T) {
	tests := []struct {
		compression Compression
		want        string
	}{
		{CompressionNone, "none"},
		{CompressionLZ4, "lz4"},
		{CompressionZstd, "zstd"},
		{Compression(42), "unknown(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.compression.String(); got != tt.want {
				t.Errorf("Compression(%d).String() = %q, want %q", tt.compression, got, tt.want)
			}
		})
	}
}

func TestParseCompression(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		t.Run(name, func(t *testing.T) {
			compression, err := ParseCompression(name)
			if err != nil {
				t.Fatalf("ParseCompression(%q) failed: %v", name, err)
			}
			if compression.String() != name {
				t.Errorf("roundtrip: ParseCompression(%q).String() = %q", name, compression.String())
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		if _, err := ParseCompression("gzip"); err == nil {
			t.Error("ParseCompression(\"gzip\") should fail")
		}
	})
}

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("requested 10ms, slept 10.043ms; "), 512)

	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			compressed, err := compress(data, compression)
			if err != nil {
				t.Fatalf("compress failed: %v", err)
			}
			if compression != CompressionNone && len(compressed) >= len(data) {
				t.Errorf("compressed %d bytes to %d", len(data), len(compressed))
			}

			decompressed, err := decompress(compressed, compression, len(data))
			if err != nil {
				t.Fatalf("decompress failed: %v", err)
			}
			if !bytes.Equal(decompressed, data) {
				t.Error("roundtrip mismatch")
			}
		})
	}
}

func TestCompressIncompressible(t *testing.T) {
	data := make([]byte, 4096)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}

	for _, compression := range []Compression{CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			_, err := compress(data, compression)
			if !errors.Is(err, errIncompressible) {
				t.Errorf("compress(random) error = %v, want errIncompressible", err)
			}
		})
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	data := bytes.Repeat([]byte("abcd"), 256)

	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			compressed, err := compress(data, compression)
			if err != nil {
				t.Fatalf("compress failed: %v", err)
			}
			if _, err := decompress(compressed, compression, len(data)+1); err == nil {
				t.Error("decompress with wrong size should fail")
			}
		})
	}
}

func TestCompressUnsupported(t *testing.T) {
	if _, err := compress([]byte("data"), Compression(9)); err == nil {
		t.Error("compress with unknown algorithm should fail")
	}
	if _, err := decompress([]byte("data"), Compression(9), 4); err == nil {
		t.Error("decompress with unknown algorithm should fail")
	}
}
