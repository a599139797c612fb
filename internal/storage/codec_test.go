package storage

import (
	"errors"
	"testing"

	"equilibria/internal/model"
)

func TestSimulationCodecRoundTrip(t *testing.T) {
	record := sampleRecord("sim-1", "2026-01-01T00:00:00Z")
	record.Errors = []string{"configuration 0: boom"}
	payload, err := EncodeSimulation(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeSimulation(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != record.ID || len(decoded.Errors) != 1 || decoded.Configurations[0].MeanEfficiency != 0.5 {
		t.Fatalf("unexpected decoded record: %+v", decoded)
	}
}

func TestSimulationCodecVersionMismatch(t *testing.T) {
	record := sampleRecord("sim-1", "")
	record.VersionedRecord = model.VersionedRecord{SchemaVersion: 99, CodecVersion: CurrentCodecVersion}
	payload, err := EncodeSimulation(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeSimulation(payload); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
	if _, err := DecodeSimulation([]byte("{")); err == nil {
		t.Fatal("expected malformed payload error")
	}
}
