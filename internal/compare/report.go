package compare

import (
	"fmt"
	"strings"
)

// Markdown renders the comparison as a human-readable report for review
// before a promotion decision.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Champion vs Challenger Model Comparison Report\n\n")

	b.WriteString("## Model Versions\n")
	fmt.Fprintf(&b, "- **Champion (Production)**: v%s\n", orUnknown(r.ChampionVersion))
	fmt.Fprintf(&b, "- **Challenger (Staging)**: v%s\n\n", orUnknown(r.ChallengerVersion))

	b.WriteString("## Prediction Agreement\n")
	fmt.Fprintf(&b, "- **Total Samples**: %d\n", r.Samples)
	fmt.Fprintf(&b, "- **Agreement Rate**: %.2f%%\n", r.AgreementRate*100)
	fmt.Fprintf(&b, "- **Disagreement Rate**: %.2f%%\n\n", (1-r.AgreementRate)*100)

	b.WriteString("## Prediction Distribution\n")
	fmt.Fprintf(&b, "- **Champion Positive Rate**: %.2f%%\n", r.ChampionPositiveRate*100)
	fmt.Fprintf(&b, "- **Challenger Positive Rate**: %.2f%%\n\n", r.ChallengerPositiveRate*100)

	b.WriteString("## Probability Calibration\n")
	fmt.Fprintf(&b, "- **Average Probability Difference**: %.4f\n", r.AvgProbabilityDiff)
	fmt.Fprintf(&b, "- **Maximum Probability Difference**: %.4f\n\n", r.MaxProbabilityDiff)

	b.WriteString("## Recommendation\n")
	fmt.Fprintf(&b, "**%s**: %s\n", r.Recommendation, recommendationDetail(r.Recommendation))
	return b.String()
}

func recommendationDetail(rec Recommendation) string {
	switch rec {
	case SafeToPromote:
		return "models are highly aligned; the challenger can likely be promoted with minimal risk."
	case ReviewRecommended:
		return "models show reasonable agreement but some divergence; review disagreement cases before promotion."
	default:
		return "significant prediction differences detected; investigate feature drift, " +
			"model architecture, and training data differences before considering promotion."
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
