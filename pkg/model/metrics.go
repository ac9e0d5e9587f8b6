package model

import "sort"

// Metrics maps a metric name to its logged value for a model version.
type Metrics map[string]float64

// Well-known metric names logged by evaluation runs.
const (
	MetricAccuracy  = "accuracy"
	MetricPrecision = "precision"
	MetricRecall    = "recall"
	MetricF1Score   = "f1_score"
	MetricROCAUC    = "roc_auc"
)

// RequiredMetrics are the metrics every version must carry before it can be
// considered for promotion.
var RequiredMetrics = []string{MetricAccuracy, MetricPrecision, MetricRecall}

// Missing returns the names from required that are absent from m, in the
// order given. A metric present with value zero is not missing.
func (m Metrics) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := m[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Names returns the metric names in sorted order.
func (m Metrics) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy of m. Import flows copy metrics verbatim from the
// export manifest, so the copy must be independent of the source map.
func (m Metrics) Clone() Metrics {
	if m == nil {
		return nil
	}
	out := make(Metrics, len(m))
	for name, value := range m {
		out[name] = value
	}
	return out
}
