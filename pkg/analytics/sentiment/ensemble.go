package sentiment

// ensembleScorer blends the local backends with fixed weights, renormalized
// over whichever backends are actually available. VADER dominates because it
// is the best calibrated of the three; the keyword backend contributes its
// severe-vocabulary signal that the statistical models miss.
type ensembleScorer struct {
	vader   *VaderScorer
	bayes   *BayesScorer
	keyword *KeywordScorer
}

const (
	vaderWeight   = 0.5
	bayesWeight   = 0.3
	keywordWeight = 0.2
)

// Name returns the backend identifier.
func (s *ensembleScorer) Name() string { return "ensemble" }

// Threshold returns the symmetric classification threshold for this backend.
func (s *ensembleScorer) Threshold() float64 { return 0.1 }

// Score returns the weighted blend of the available backends.
func (s *ensembleScorer) Score(text string) (float64, Meta) {
	meta := Meta{}
	sum, weight := 0.0, 0.0

	if s.vader != nil {
		v, _ := s.vader.Score(text)
		sum += v * vaderWeight
		weight += vaderWeight
		meta["vader"] = v
	}
	if s.bayes != nil {
		b, _ := s.bayes.Score(text)
		sum += b * bayesWeight
		weight += bayesWeight
		meta["bayes"] = b
	}
	k, _ := s.keyword.Score(text)
	sum += k * keywordWeight
	weight += keywordWeight
	meta["keyword"] = k

	return clamp(sum / weight), meta
}
