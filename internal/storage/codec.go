package storage

import (
	"encoding/json"
	"errors"

	"equilibria/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp sets the current schema and codec versions on a record.
func Stamp(record model.SimulationRecord) model.SimulationRecord {
	record.SchemaVersion = CurrentSchemaVersion
	record.CodecVersion = CurrentCodecVersion
	return record
}

func EncodeSimulation(record model.SimulationRecord) ([]byte, error) {
	return json.Marshal(record)
}

func DecodeSimulation(data []byte) (model.SimulationRecord, error) {
	var record model.SimulationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.SimulationRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.SimulationRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
