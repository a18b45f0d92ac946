package sentiment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"chatlytics-server/pkg/llm"
)

const remoteBatchSize = 10

// remoteScorer scores messages through the completion API in batches. A batch
// that fails, or comes back with the wrong number of lines, falls back to the
// keyword backend for that batch only so a flaky upstream cannot sink the
// whole analysis.
type remoteScorer struct {
	client  *llm.Client
	keyword *KeywordScorer
	model   string
	logger  *logrus.Entry
}

func newRemoteScorer(client *llm.Client, keyword *KeywordScorer, model string, logger *logrus.Entry) *remoteScorer {
	return &remoteScorer{
		client:  client,
		keyword: keyword,
		model:   llm.PickModel(llm.TaskSentiment, model),
		logger:  logger,
	}
}

// Threshold returns the symmetric classification threshold for this backend.
func (s *remoteScorer) Threshold() float64 { return 0.2 }

// scoreBatch scores texts in order, one score per input.
func (s *remoteScorer) scoreBatch(ctx context.Context, texts []string) []float64 {
	scores := make([]float64, 0, len(texts))
	for start := 0; start < len(texts); start += remoteBatchSize {
		end := start + remoteBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		batchScores, err := s.scoreOne(ctx, batch)
		if err != nil {
			s.logger.WithError(err).WithField("batch_start", start).
				Warn("Remote sentiment batch failed, using keyword fallback")
			batchScores = make([]float64, 0, len(batch))
			for _, t := range batch {
				v, _ := s.keyword.Score(t)
				batchScores = append(batchScores, v)
			}
		}
		scores = append(scores, batchScores...)
	}
	return scores
}

func (s *remoteScorer) scoreOne(ctx context.Context, batch []string) ([]float64, error) {
	var sb strings.Builder
	sb.WriteString("Rate the sentiment of each numbered message on a scale from -1 (very negative) to 1 (very positive).\n")
	sb.WriteString("Reply with one number per line, in order, and nothing else.\n\n")
	for i, t := range batch {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, t)
	}

	resp, err := s.client.Complete(ctx, s.model, sb.String(), llm.CompletionOptions{
		Task:        llm.TaskSentiment,
		Temperature: 0.1,
		MaxTokens:   10 * len(batch),
	})
	if err != nil {
		return nil, err
	}

	scores := make([]float64, 0, len(batch))
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Tolerate "3. -0.5" style numbering in the reply.
		if i := strings.LastIndexByte(line, ' '); i >= 0 {
			line = line[i+1:]
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			continue
		}
		scores = append(scores, clamp(v))
	}
	if len(scores) != len(batch) {
		return nil, fmt.Errorf("expected %d scores, parsed %d", len(batch), len(scores))
	}
	return scores, nil
}
