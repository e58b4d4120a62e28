package longitudinal

import (
	"fmt"
	"math"
	"slices"
)

// Review routing thresholds.
const (
	MinConfidentProbability = 0.8
	MaxConfidentEntropy     = 1.0
	MinConfidentMargin      = 0.2

	// entropyEpsilon keeps log2 finite for zero probabilities.
	entropyEpsilon = 1e-10

	// distributionTolerance bounds how far the probabilities may sum from 1.
	distributionTolerance = 0.01
)

// ReviewReason names a condition that triggered human review.
type ReviewReason string

const (
	ReasonLowConfidence ReviewReason = "low_confidence"
	ReasonHighEntropy   ReviewReason = "high_entropy"
	ReasonNarrowMargin  ReviewReason = "narrow_margin"
)

// ConfidenceMetrics is the routing decision for one prediction.
type ConfidenceMetrics struct {
	Entropy           float64        `json:"entropy"`
	MaxProbability    float64        `json:"max_probability"`
	ProbabilityMargin float64        `json:"probability_margin"`
	UncertaintyScore  float64        `json:"uncertainty_score"`
	NeedsHumanReview  bool           `json:"needs_human_review"`
	ReviewReasons     []ReviewReason `json:"review_reasons"`
}

// Route computes confidence metrics from a class probability distribution
// and decides whether the prediction needs human review. Any one of low
// max probability, high entropy or a narrow top-2 margin triggers review.
func Route(dist map[string]float64) (ConfidenceMetrics, error) {
	if len(dist) == 0 {
		return ConfidenceMetrics{}, fmt.Errorf("%w: no classes", ErrInvalidDistribution)
	}

	probs := make([]float64, 0, len(dist))
	var sum float64
	for label, p := range dist {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return ConfidenceMetrics{}, fmt.Errorf("%w: %q has probability %v", ErrInvalidDistribution, label, p)
		}
		probs = append(probs, p)
		sum += p
	}
	if math.Abs(sum-1) > distributionTolerance {
		return ConfidenceMetrics{}, fmt.Errorf("%w: probabilities sum to %.4f", ErrInvalidDistribution, sum)
	}

	slices.Sort(probs)
	slices.Reverse(probs)

	var entropy float64
	for _, p := range probs {
		entropy -= p * math.Log2(p+entropyEpsilon)
	}

	margin := 1.0
	if len(probs) > 1 {
		margin = probs[0] - probs[1]
	}

	out := ConfidenceMetrics{
		Entropy:           entropy,
		MaxProbability:    probs[0],
		ProbabilityMargin: margin,
		UncertaintyScore:  1 - probs[0],
		ReviewReasons:     []ReviewReason{},
	}
	if out.MaxProbability < MinConfidentProbability {
		out.ReviewReasons = append(out.ReviewReasons, ReasonLowConfidence)
	}
	if out.Entropy > MaxConfidentEntropy {
		out.ReviewReasons = append(out.ReviewReasons, ReasonHighEntropy)
	}
	if out.ProbabilityMargin < MinConfidentMargin {
		out.ReviewReasons = append(out.ReviewReasons, ReasonNarrowMargin)
	}
	out.NeedsHumanReview = len(out.ReviewReasons) > 0
	return out, nil
}
