package types

// MetricMeta describes how a result summary field is displayed and scaled.
type MetricMeta struct {
	Unit         string  `json:"unit"`
	LessIsBetter bool    `json:"lessisbetter"`
	Scale        float64 `json:"scale"`
	Label        string  `json:"print"`
}

// PlottableFields lists the result summary columns available for plotting,
// in display order.
var PlottableFields = []string{
	"throughput",
	"p99_latency",
	"p95_latency",
	"p90_latency",
	"avg_latency",
	"p50_latency",
	"max_latency",
	"p75_latency",
	"p25_latency",
	"min_latency",
}

// MetricMetadata maps each plottable field to its display metadata.
var MetricMetadata = map[string]MetricMeta{
	"throughput":  {Unit: "transactions/second", LessIsBetter: false, Scale: 1, Label: "Throughput"},
	"p99_latency": {Unit: "milliseconds", LessIsBetter: true, Scale: 0.001, Label: "99% Latency"},
	"p95_latency": {Unit: "milliseconds", LessIsBetter: true, Scale: 0.001, Label: "95% Latency"},
	"p90_latency": {Unit: "milliseconds", LessIsBetter: true, Scale: 0.001, Label: "90% Latency"},
	"p75_latency": {Unit: "milliseconds", LessIsBetter: true, Scale: 0.001, Label: "75% Latency"},
	"p50_latency": {Unit: "milliseconds", LessIsBetter: true, Scale: 0.001, Label: "Med. Latency"},
	"p25_latency": {Unit: "milliseconds", LessIsBetter: true, Scale: 0.001, Label: "25% Latency"},
	"min_latency": {Unit: "milliseconds", LessIsBetter: true, Scale: 0.001, Label: "Min Latency"},
	"avg_latency": {Unit: "milliseconds", LessIsBetter: true, Scale: 0.001, Label: "Avg. Latency"},
	"max_latency": {Unit: "milliseconds", LessIsBetter: true, Scale: 0.001, Label: "Max Latency"},
}
