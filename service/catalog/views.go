// Package catalog builds derived views of stored configuration and metric
// snapshots against the knob and metric catalogs of a DBMS.
package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dbtune-service/service/types"
)

// Excluded is the placeholder value reported for catalog entries that are
// filtered out of a view when the caller asks for the full catalog.
const Excluded = "--"

// KnobValue is one entry of a tuning configuration view.
type KnobValue struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// MetricValue is one entry of a normalized metrics view.
type MetricValue struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// TuningConfiguration filters a stored configuration snapshot down to the
// tunable knobs of the catalog. Non-tunable knobs are omitted unless
// includeAll is set, in which case they carry the Excluded placeholder.
// The result preserves catalog order.
func TuningConfiguration(conf *types.DBConf, knobs []*types.KnobCatalog, includeAll bool) ([]KnobValue, error) {
	stored := make(map[string]interface{})
	if err := json.Unmarshal(conf.Configuration, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode configuration snapshot: %w", err)
	}

	params := make([]KnobValue, 0, len(knobs))
	for _, k := range knobs {
		if k.Tunable {
			v, ok := stored[k.Name]
			if !ok {
				return nil, fmt.Errorf("tunable knob %s missing from configuration snapshot", k.Name)
			}
			params = append(params, KnobValue{Name: k.Name, Value: v})
		} else if includeAll {
			params = append(params, KnobValue{Name: k.Name, Value: Excluded})
		}
	}
	return params, nil
}

// NormalizedMetrics reshapes a stored metrics snapshot, dividing each
// counter metric by the snapshot's execution time. Non-counter metrics are
// omitted unless includeAll is set. The result preserves catalog order.
func NormalizedMetrics(snapshot *types.DBMSMetrics, metrics []*types.MetricCatalog, includeAll bool) ([]MetricValue, error) {
	if snapshot.ExecutionTime <= 0 {
		return nil, fmt.Errorf("execution time must be greater than 0")
	}

	stored := make(map[string]interface{})
	if err := json.Unmarshal(snapshot.Configuration, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode metrics snapshot: %w", err)
	}

	norm := make([]MetricValue, 0, len(metrics))
	for _, m := range metrics {
		if m.MetricType == types.MetricCounter {
			raw, ok := stored[m.Name]
			if !ok {
				return nil, fmt.Errorf("counter metric %s missing from metrics snapshot", m.Name)
			}
			value, err := toFloat(raw)
			if err != nil {
				return nil, fmt.Errorf("counter metric %s: %w", m.Name, err)
			}
			norm = append(norm, MetricValue{
				Name:  m.Name,
				Value: value / float64(snapshot.ExecutionTime),
			})
		} else if includeAll {
			norm = append(norm, MetricValue{Name: m.Name, Value: Excluded})
		}
	}
	return norm, nil
}

// toFloat accepts the value shapes a JSON snapshot can legally carry for a
// counter: a number, or a numeric string.
func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", v)
	}
}
