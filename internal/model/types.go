package model

// TimeLayout formats UTC timestamps so that they sort lexically.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// SimulationRecord is the persisted summary of one simulation.
type SimulationRecord struct {
	VersionedRecord
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Status         string                 `json:"status"`
	CreatedAtUTC   string                 `json:"created_at_utc"`
	FinishedAtUTC  string                 `json:"finished_at_utc,omitempty"`
	Parameter      string                 `json:"parameter,omitempty"`
	Iterations     int                    `json:"iterations"`
	Finished       int                    `json:"finished"`
	Errors         []string               `json:"errors,omitempty"`
	Configurations []ConfigurationSummary `json:"configurations"`
}

// ConfigurationSummary aggregates the iterations of one elementary
// configuration.
type ConfigurationSummary struct {
	Label            string             `json:"label"`
	Value            float64            `json:"value"`
	Iterations       int                `json:"iterations"`
	EquilibriumRate  float64            `json:"equilibrium_rate"`
	MeanEfficiency   float64            `json:"mean_efficiency"`
	StdDevEfficiency float64            `json:"stddev_efficiency"`
	MinEfficiency    float64            `json:"min_efficiency"`
	MaxEfficiency    float64            `json:"max_efficiency"`
	MeanAdapts       float64            `json:"mean_adapts"`
	FinalPortions    map[string]float64 `json:"final_portions,omitempty"`
}
