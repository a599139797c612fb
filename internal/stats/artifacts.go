package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"equilibria/internal/model"
)

const (
	simulationFile     = "simulation.json"
	configurationsFile = "configurations.csv"
)

// WriteSimulationArtifacts writes the record as JSON plus a per-configuration
// CSV under baseDir/<id> and returns that directory.
func WriteSimulationArtifacts(baseDir string, record model.SimulationRecord) (string, error) {
	if record.ID == "" {
		return "", fmt.Errorf("simulation id is required")
	}
	dir := filepath.Join(baseDir, record.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, simulationFile), record); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(dir, configurationsFile), func(w io.Writer) error {
		return WriteConfigurationsCSV(w, record.Configurations)
	}); err != nil {
		return "", err
	}
	return dir, nil
}

// WriteTrajectory writes the mean strategy shares per adaptation step of one
// configuration as trajectory_<config>.csv.
func WriteTrajectory(dir string, config int, names []string, rows [][]float64) error {
	path := filepath.Join(dir, fmt.Sprintf("trajectory_%d.csv", config))
	return writeCSV(path, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(append([]string{"step"}, names...)); err != nil {
			return err
		}
		for k, row := range rows {
			line := make([]string, 0, len(row)+1)
			line = append(line, strconv.Itoa(k))
			for _, share := range row {
				line = append(line, strconv.FormatFloat(share, 'f', -1, 64))
			}
			if err := writer.Write(line); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	})
}

// WriteConfigurationsCSV renders summaries one row per configuration.
// Final strategy shares follow the fixed columns, sorted by strategy name.
func WriteConfigurationsCSV(w io.Writer, summaries []model.ConfigurationSummary) error {
	strategies := strategyColumns(summaries)
	header := []string{
		"label", "value", "iterations", "equilibrium_rate",
		"mean_efficiency", "stddev_efficiency", "min_efficiency", "max_efficiency", "mean_adapts",
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(append(header, strategies...)); err != nil {
		return err
	}
	for _, s := range summaries {
		row := []string{
			s.Label,
			formatFloat(s.Value),
			strconv.Itoa(s.Iterations),
			formatFloat(s.EquilibriumRate),
			formatFloat(s.MeanEfficiency),
			formatFloat(s.StdDevEfficiency),
			formatFloat(s.MinEfficiency),
			formatFloat(s.MaxEfficiency),
			formatFloat(s.MeanAdapts),
		}
		for _, name := range strategies {
			row = append(row, formatFloat(s.FinalPortions[name]))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadSimulationArtifacts loads a record previously written under baseDir.
func ReadSimulationArtifacts(baseDir, id string) (model.SimulationRecord, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, id, simulationFile))
	if err != nil {
		if os.IsNotExist(err) {
			return model.SimulationRecord{}, false, nil
		}
		return model.SimulationRecord{}, false, err
	}
	var record model.SimulationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.SimulationRecord{}, false, err
	}
	return record, true, nil
}

func strategyColumns(summaries []model.ConfigurationSummary) []string {
	seen := map[string]bool{}
	var names []string
	for _, s := range summaries {
		for name := range s.FinalPortions {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func writeCSV(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
