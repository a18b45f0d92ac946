package sentiment

import "github.com/jonreiter/govader"

// VaderScorer wraps the VADER lexicon analyzer. VADER handles intensifiers,
// negation, and emoji natively, so it uses a much tighter neutral band than
// the plain keyword backend.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer builds the VADER backend.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Name returns the backend identifier.
func (s *VaderScorer) Name() string { return "vader" }

// Threshold returns the symmetric classification threshold for this backend.
func (s *VaderScorer) Threshold() float64 { return 0.05 }

// Score returns the VADER compound score in [-1, 1].
func (s *VaderScorer) Score(text string) (float64, Meta) {
	scores := s.analyzer.PolarityScores(text)
	return scores.Compound, Meta{
		"positive": scores.Positive,
		"neutral":  scores.Neutral,
		"negative": scores.Negative,
	}
}
