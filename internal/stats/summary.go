package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"equilibria/internal/engine"
	"equilibria/internal/model"
)

// Summarize aggregates the iterations of one elementary configuration.
func Summarize(label string, value float64, results []engine.IterationResult) model.ConfigurationSummary {
	summary := model.ConfigurationSummary{
		Label:      label,
		Value:      value,
		Iterations: len(results),
	}
	if len(results) == 0 {
		return summary
	}

	efficiency := make([]float64, len(results))
	adapts := make([]float64, len(results))
	reached := 0
	for i, r := range results {
		efficiency[i] = r.Efficiency
		adapts[i] = float64(r.Adapts)
		if r.EquilibriumReached {
			reached++
		}
	}
	summary.MeanEfficiency, summary.StdDevEfficiency = stat.MeanStdDev(efficiency, nil)
	if len(results) == 1 {
		summary.StdDevEfficiency = 0
	}
	summary.MinEfficiency = floats.Min(efficiency)
	summary.MaxEfficiency = floats.Max(efficiency)
	summary.MeanAdapts = stat.Mean(adapts, nil)
	summary.EquilibriumRate = float64(reached) / float64(len(results))
	summary.FinalPortions = meanFinalPortions(results)
	return summary
}

func meanFinalPortions(results []engine.IterationResult) map[string]float64 {
	out := make(map[string]float64)
	counted := 0
	for _, r := range results {
		final := r.FinalPortions()
		if len(final) != len(r.StrategyNames) {
			continue
		}
		for i, name := range r.StrategyNames {
			out[name] += final[i]
		}
		counted++
	}
	if counted == 0 {
		return nil
	}
	for name := range out {
		out[name] /= float64(counted)
	}
	return out
}

// PortionTrajectory averages the strategy shares per adaptation step over
// iterations. Iterations that stopped early hold their final shares.
func PortionTrajectory(results []engine.IterationResult) (names []string, rows [][]float64) {
	if len(results) == 0 {
		return nil, nil
	}
	names = results[0].StrategyNames
	steps := 0
	for _, r := range results {
		steps = max(steps, len(r.Portions))
	}
	rows = make([][]float64, steps)
	for k := range rows {
		rows[k] = make([]float64, len(names))
		column := make([]float64, 0, len(results))
		for s := range names {
			column = column[:0]
			for _, r := range results {
				if len(r.Portions) == 0 {
					continue
				}
				row := r.Portions[min(k, len(r.Portions)-1)]
				if s < len(row) {
					column = append(column, row[s])
				}
			}
			if len(column) > 0 {
				rows[k][s] = stat.Mean(column, nil)
			}
		}
	}
	return names, rows
}
