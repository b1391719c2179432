// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// measurement has the shape of a bench record: json tags, as used by
// every type that is also printed with --json.
type measurement struct {
	RequestedMS float64 `json:"requested_ms"`
	ActualMS    float64 `json:"actual_ms"`
	Note        string  `json:"note,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := measurement{RequestedMS: 12.5, ActualMS: 12.5031, Note: "warm"}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded measurement
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]float64{"zeta": 1, "alpha": 2, "mid": 3}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 20 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestTimePreservesNanoseconds(t *testing.T) {
	type stamped struct {
		At time.Time `json:"at"`
	}
	original := stamped{At: time.Date(2026, 3, 14, 15, 9, 26, 535897932, time.UTC)}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded stamped
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.At.Equal(original.At) {
		t.Errorf("time roundtrip: got %v, want %v", decoded.At, original.At)
	}
}

func TestEncoderDecoderSequence(t *testing.T) {
	records := []measurement{
		{RequestedMS: 1, ActualMS: 1.002},
		{RequestedMS: 10, ActualMS: 10.004},
		{RequestedMS: 100, ActualMS: 100.01, Note: "slow"},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for index, want := range records {
		var got measurement
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode record %d: %v", index, err)
		}
		if got != want {
			t.Errorf("record %d: got %+v, want %+v", index, got, want)
		}
	}
	var extra measurement
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		t.Fatalf("Decode past the end = %v, want io.EOF", err)
	}
}

func TestOmitemptyRespected(t *testing.T) {
	withNote, err := Marshal(measurement{RequestedMS: 1, Note: "x"})
	if err != nil {
		t.Fatal(err)
	}
	withoutNote, err := Marshal(measurement{RequestedMS: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(withoutNote) >= len(withNote) {
		t.Errorf("omitempty not effective: without=%d bytes, with=%d bytes", len(withoutNote), len(withNote))
	}
}

func TestLargeArrayAccepted(t *testing.T) {
	// Beyond fxamacker's default limit of 131072 elements.
	values := make([]float64, 200_000)
	data, err := Marshal(values)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded []float64
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(decoded) != len(values) {
		t.Fatalf("decoded %d values, want %d", len(decoded), len(values))
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var decoded measurement
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &decoded); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(measurement{RequestedMS: 2, ActualMS: 2.5})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	for _, fragment := range []string{`"requested_ms"`, `"actual_ms"`, "2.5"} {
		if !strings.Contains(notation, fragment) {
			t.Errorf("notation %q does not contain %s", notation, fragment)
		}
	}
}

func BenchmarkMarshal(b *testing.B) {
	record := measurement{RequestedMS: 12.5, ActualMS: 12.5031}
	b.ReportAllocs()
	for b.Loop() {
		Marshal(record)
	}
}
