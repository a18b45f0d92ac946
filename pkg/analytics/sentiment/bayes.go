package sentiment

import (
	"github.com/cdipaolo/sentiment"

	"chatlytics-server/pkg/errors"
)

// BayesScorer wraps the pretrained naive Bayes classifier. The underlying
// model emits a binary class, so scores are mapped onto the usual [-1, 1]
// scale: class 1 becomes +1, class 0 becomes -1.
type BayesScorer struct {
	model sentiment.Models
}

// NewBayesScorer restores the bundled model. A restore failure means the
// backend is unavailable, not that the message was bad.
func NewBayesScorer() (*BayesScorer, error) {
	model, err := sentiment.Restore()
	if err != nil {
		return nil, errors.NewBackendUnavailable("bayes", err)
	}
	return &BayesScorer{model: model}, nil
}

// Name returns the backend identifier.
func (s *BayesScorer) Name() string { return "bayes" }

// Threshold returns the symmetric classification threshold for this backend.
func (s *BayesScorer) Threshold() float64 { return 0.1 }

// Score maps the binary class onto [-1, 1].
func (s *BayesScorer) Score(text string) (float64, Meta) {
	analysis := s.model.SentimentAnalysis(text, sentiment.English)
	score := 2*float64(analysis.Score) - 1
	return score, Meta{"class": analysis.Score}
}
