// Package compare implements the champion/challenger comparison used to
// decide whether a staged candidate can safely replace the production model.
package compare

import (
	"math"

	"github.com/pkg/errors"
)

// Recommendation buckets a comparison into a promotion advice level.
type Recommendation string

const (
	// SafeToPromote means the models are highly aligned.
	SafeToPromote Recommendation = "SAFE TO PROMOTE"
	// ReviewRecommended means reasonable agreement with some divergence.
	ReviewRecommended Recommendation = "REVIEW RECOMMENDED"
	// Caution means significant prediction differences were detected.
	Caution Recommendation = "CAUTION"
)

// Thresholds for the recommendation buckets.
const (
	safeAgreement   = 0.95
	safeAvgProbDiff = 0.05
	reviewAgreement = 0.85
)

// Prediction is one model's output for a single input row: the predicted
// class label and the positive-class probability.
type Prediction struct {
	Label       int     `json:"prediction"`
	Probability float64 `json:"probability"`
}

// Report holds the comparison statistics over one shared input batch.
type Report struct {
	ChampionVersion        string         `json:"champion_version"`
	ChallengerVersion      string         `json:"challenger_version"`
	Samples                int            `json:"total_samples"`
	AgreementRate          float64        `json:"agreement_rate"`
	ChampionPositiveRate   float64        `json:"champion_positive_rate"`
	ChallengerPositiveRate float64        `json:"challenger_positive_rate"`
	AvgProbabilityDiff     float64        `json:"avg_probability_diff"`
	MaxProbabilityDiff     float64        `json:"max_probability_diff"`
	Recommendation         Recommendation `json:"recommendation"`
}

// Compare computes agreement and probability-distance statistics for two
// models' predictions over the same ordered input batch. Both sequences must
// be non-empty and of equal length; the positions must correspond to the
// same input rows.
func Compare(champion, challenger []Prediction) (*Report, error) {
	if len(champion) == 0 {
		return nil, errors.New("comparison requires a non-empty prediction batch")
	}
	if len(champion) != len(challenger) {
		return nil, errors.Errorf(
			"prediction batches differ in length: champion %d, challenger %d",
			len(champion), len(challenger))
	}

	n := float64(len(champion))
	var agreements, championPositives, challengerPositives float64
	var sumDiff, maxDiff float64
	for i := range champion {
		if champion[i].Label == challenger[i].Label {
			agreements++
		}
		championPositives += float64(champion[i].Label)
		challengerPositives += float64(challenger[i].Label)
		diff := math.Abs(champion[i].Probability - challenger[i].Probability)
		sumDiff += diff
		if diff > maxDiff {
			maxDiff = diff
		}
	}

	r := &Report{
		Samples:                len(champion),
		AgreementRate:          agreements / n,
		ChampionPositiveRate:   championPositives / n,
		ChallengerPositiveRate: challengerPositives / n,
		AvgProbabilityDiff:     sumDiff / n,
		MaxProbabilityDiff:     maxDiff,
	}
	r.Recommendation = recommend(r.AgreementRate, r.AvgProbabilityDiff)
	return r, nil
}

// recommend maps the statistics to a bucket; the first match wins.
func recommend(agreement, avgProbDiff float64) Recommendation {
	switch {
	case agreement >= safeAgreement && avgProbDiff < safeAvgProbDiff:
		return SafeToPromote
	case agreement >= reviewAgreement:
		return ReviewRecommended
	default:
		return Caution
	}
}
