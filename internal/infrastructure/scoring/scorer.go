// Package scoring computes the advisory quality and confidence scores
// attached to a cleaned record. Scores never gate persistence; they feed the
// downstream review tooling.
package scoring

import (
	"unicode"

	"github.com/vthnguyen/docstream/internal/core/domain"
)

type Scorer struct{}

func New() *Scorer {
	return &Scorer{}
}

// Score returns quality (extraction/cleaning fidelity) and confidence
// (classification certainty), both clamped to [0,1]. Deterministic for a
// given input.
func (s *Scorer) Score(extracted, cleaned string, cls domain.Classification) (float64, float64) {
	quality := clamp01(0.6*retention(extracted, cleaned) + 0.4*letterRatio(cleaned))
	confidence := clamp01(cls.Confidence)
	return quality, confidence
}

// retention measures how much content survived cleaning. Heavy loss usually
// means the extraction produced mostly noise.
func retention(extracted, cleaned string) float64 {
	if len(extracted) == 0 {
		return 0
	}
	r := float64(len(cleaned)) / float64(len(extracted))
	if r > 1 {
		r = 1
	}
	return r
}

func letterRatio(text string) float64 {
	if text == "" {
		return 0
	}
	letters, total := 0, 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			letters++
		}
	}
	return float64(letters) / float64(total)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
