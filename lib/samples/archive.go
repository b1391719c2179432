// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package samples

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bureau-foundation/tempo/lib/codec"
	"github.com/bureau-foundation/tempo/lib/hostinfo"
	"github.com/bureau-foundation/tempo/lib/precise"
)

const (
	magic         = "TMPS"
	formatVersion = 1
	headerSize    = 10

	// maxPayload bounds the uncompressed payload a reader will
	// allocate for. A corrupt length field must not exhaust memory.
	maxPayload = 1 << 30
)

// Header describes the bench run an archive came from.
type Header struct {
	// ID identifies the bench run.
	ID          string              `json:"id"`
	Created     time.Time           `json:"created"`
	Calibration precise.Calibration `json:"calibration"`
	Host        hostinfo.Info       `json:"host"`
}

// Series is every measurement taken for one requested duration.
type Series struct {
	RequestedMS float64   `json:"requested_ms"`
	ActualMS    []float64 `json:"actual_ms"`
}

// Archive is a complete bench record.
type Archive struct {
	Header Header
	Series []Series
}

// Encode writes archive to w, compressing the payload with c. Returns
// the compression actually used: CompressionNone when c would not
// have shrunk the payload.
func Encode(w io.Writer, archive Archive, c Compression) (Compression, error) {
	var payload bytes.Buffer
	encoder := codec.NewEncoder(&payload)
	if err := encoder.Encode(archive.Header); err != nil {
		return 0, fmt.Errorf("encoding archive header: %w", err)
	}
	for index, series := range archive.Series {
		if err := encoder.Encode(series); err != nil {
			return 0, fmt.Errorf("encoding series %d: %w", index, err)
		}
	}
	if payload.Len() > maxPayload {
		return 0, fmt.Errorf("archive payload is %d bytes, limit %d", payload.Len(), maxPayload)
	}

	compressed, err := compress(payload.Bytes(), c)
	if errors.Is(err, errIncompressible) {
		compressed, c = payload.Bytes(), CompressionNone
	} else if err != nil {
		return 0, err
	}

	var header [headerSize]byte
	copy(header[:4], magic)
	header[4] = formatVersion
	header[5] = byte(c)
	binary.BigEndian.PutUint32(header[6:], uint32(payload.Len()))
	if _, err := w.Write(header[:]); err != nil {
		return 0, fmt.Errorf("writing archive header: %w", err)
	}
	if _, err := w.Write(compressed); err != nil {
		return 0, fmt.Errorf("writing archive payload: %w", err)
	}
	return c, nil
}

// Decode reads an archive written by Encode. Returns the archive and
// the compression its payload used.
func Decode(r io.Reader) (Archive, Compression, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Archive{}, 0, fmt.Errorf("reading archive header: %w", err)
	}
	if string(header[:4]) != magic {
		return Archive{}, 0, fmt.Errorf("not a sample archive (magic %q)", header[:4])
	}
	if header[4] != formatVersion {
		return Archive{}, 0, fmt.Errorf("archive format %d, this tempo reads format %d", header[4], formatVersion)
	}
	c := Compression(header[5])
	size := binary.BigEndian.Uint32(header[6:])
	if size > maxPayload {
		return Archive{}, 0, fmt.Errorf("archive payload length %d exceeds limit %d", size, maxPayload)
	}

	// Encode never stores a payload larger than its uncompressed form,
	// so size bounds the read.
	compressed, err := io.ReadAll(io.LimitReader(r, int64(size)+1))
	if err != nil {
		return Archive{}, 0, fmt.Errorf("reading archive payload: %w", err)
	}
	if len(compressed) > int(size) {
		return Archive{}, 0, fmt.Errorf("archive payload exceeds declared length %d", size)
	}
	payload, err := decompress(compressed, c, int(size))
	if err != nil {
		return Archive{}, 0, err
	}

	var archive Archive
	decoder := codec.NewDecoder(bytes.NewReader(payload))
	if err := decoder.Decode(&archive.Header); err != nil {
		return Archive{}, 0, fmt.Errorf("decoding archive header: %w", err)
	}
	for {
		var series Series
		err := decoder.Decode(&series)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Archive{}, 0, fmt.Errorf("decoding series %d: %w", len(archive.Series), err)
		}
		archive.Series = append(archive.Series, series)
	}
	return archive, c, nil
}

// WriteFile encodes archive into the file at path. Returns the
// compression actually used.
func WriteFile(path string, archive Archive, c Compression) (Compression, error) {
	var buffer bytes.Buffer
	used, err := Encode(&buffer, archive, c)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, buffer.Bytes(), 0644); err != nil {
		return 0, fmt.Errorf("writing sample archive: %w", err)
	}
	return used, nil
}

// ReadFile decodes the archive at path.
func ReadFile(path string) (Archive, Compression, error) {
	file, err := os.Open(path)
	if err != nil {
		return Archive{}, 0, err
	}
	defer file.Close()
	archive, c, err := Decode(file)
	if err != nil {
		return Archive{}, 0, fmt.Errorf("%s: %w", path, err)
	}
	return archive, c, nil
}
