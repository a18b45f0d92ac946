// Package sentiment scores conversation messages through a stack of
// interchangeable backends: a remote completion API, the VADER lexicon
// analyzer, a pretrained naive Bayes classifier, a plain keyword lexicon,
// and a weighted ensemble of the local three.
package sentiment

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"chatlytics-server/pkg/errors"
	"chatlytics-server/pkg/llm"
	"chatlytics-server/pkg/model"
)

// Meta carries backend-specific detail alongside a score.
type Meta map[string]interface{}

// Scorer is a per-message sentiment backend.
type Scorer interface {
	Name() string
	Score(text string) (float64, Meta)
	Threshold() float64
}

const (
	// aggregateThreshold classifies conversation and participant averages.
	aggregateThreshold = 0.2

	previewLength = 100
)

// MessageSentiment is the per-message verdict.
type MessageSentiment struct {
	MessageID string  `json:"message_id"`
	Sender    string  `json:"sender"`
	Preview   string  `json:"preview"`
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
}

// ParticipantSentiment aggregates one sender's messages.
type ParticipantSentiment struct {
	Sentiment    string  `json:"sentiment"`
	Score        float64 `json:"score"`
	MessageCount int     `json:"message_count"`
	Positive     int     `json:"positive"`
	Neutral      int     `json:"neutral"`
	Negative     int     `json:"negative"`
}

// Report is the full sentiment analysis output.
type Report struct {
	OverallSentiment      string                          `json:"overall_sentiment"`
	SentimentScore        float64                         `json:"sentiment_score"`
	MessageSentiments     []MessageSentiment              `json:"message_sentiments"`
	ParticipantSentiments map[string]ParticipantSentiment `json:"participant_sentiments"`
	Distribution          map[string]int                  `json:"sentiment_distribution"`
	ScoreDistribution     map[string]int                  `json:"score_distribution"`
	Method                string                          `json:"method"`
	TotalMessages         int                             `json:"total_messages"`
}

// Engine selects a backend and runs the analysis. Backend priority is
// ensemble, then remote, then VADER, then Bayes, then keyword; the first
// available wins.
type Engine struct {
	logger      *logrus.Entry
	keyword     *KeywordScorer
	vader       *VaderScorer
	bayes       *BayesScorer
	remote      *remoteScorer
	useEnsemble bool
}

// NewEngine wires up every backend that can be brought up. client may be nil
// when no API key is configured; a Bayes model restore failure is logged and
// the backend skipped. model overrides the remote backend's default model
// when non-empty.
func NewEngine(client *llm.Client, model string, useAI, useEnsemble bool, logger *logrus.Logger) *Engine {
	entry := logger.WithField("component", "sentiment")
	e := &Engine{
		logger:      entry,
		keyword:     NewKeywordScorer(),
		vader:       NewVaderScorer(),
		useEnsemble: useEnsemble,
	}

	bayes, err := NewBayesScorer()
	if err != nil {
		entry.WithError(err).Warn("Bayes sentiment model unavailable")
	} else {
		e.bayes = bayes
	}

	if useAI && client != nil {
		e.remote = newRemoteScorer(client, e.keyword, model, entry)
	}
	return e
}

// Analyze scores every message and aggregates the results.
func (e *Engine) Analyze(ctx context.Context, conv *model.Conversation) (*Report, error) {
	if conv == nil || conv.Len() == 0 {
		return nil, errors.NewEmptyConversation(conversationID(conv))
	}

	msgs := conv.SortedMessages()

	// Backend priority: ensemble, then remote, then the single local backends.
	if e.remote != nil && !e.ensembleAvailable() {
		return e.analyzeRemote(ctx, msgs), nil
	}

	scorer := e.localScorer()
	e.logger.WithField("method", scorer.Name()).Debug("Scoring messages")

	results := make([]MessageSentiment, 0, len(msgs))
	for _, m := range msgs {
		results = append(results, e.scoreMessage(scorer, m))
	}
	return aggregate(results, scorer.Name()), nil
}

func (e *Engine) ensembleAvailable() bool {
	return e.useEnsemble && (e.vader != nil || e.bayes != nil)
}

// localScorer picks the best available non-remote backend.
func (e *Engine) localScorer() Scorer {
	if e.ensembleAvailable() {
		return &ensembleScorer{vader: e.vader, bayes: e.bayes, keyword: e.keyword}
	}
	if e.vader != nil {
		return e.vader
	}
	if e.bayes != nil {
		return e.bayes
	}
	return e.keyword
}

func (e *Engine) scoreMessage(scorer Scorer, m model.Message) MessageSentiment {
	if m.Content == "" {
		return MessageSentiment{
			MessageID: m.ID,
			Sender:    m.Sender,
			Sentiment: "neutral",
		}
	}
	score, _ := scorer.Score(m.Content)
	return MessageSentiment{
		MessageID: m.ID,
		Sender:    m.Sender,
		Preview:   preview(m.Content),
		Sentiment: classify(score, scorer.Threshold()),
		Score:     round2(score),
	}
}

func (e *Engine) analyzeRemote(ctx context.Context, msgs []model.Message) *Report {
	texts := make([]string, len(msgs))
	for i, m := range msgs {
		texts[i] = m.Content
	}
	scores := e.remote.scoreBatch(ctx, texts)

	results := make([]MessageSentiment, 0, len(msgs))
	for i, m := range msgs {
		if m.Content == "" {
			results = append(results, MessageSentiment{
				MessageID: m.ID,
				Sender:    m.Sender,
				Sentiment: "neutral",
			})
			continue
		}
		results = append(results, MessageSentiment{
			MessageID: m.ID,
			Sender:    m.Sender,
			Preview:   preview(m.Content),
			Sentiment: classify(scores[i], e.remote.Threshold()),
			Score:     round2(scores[i]),
		})
	}
	return aggregate(results, "ai")
}

func aggregate(results []MessageSentiment, method string) *Report {
	distribution := map[string]int{"positive": 0, "neutral": 0, "negative": 0}
	scoreDist := map[string]int{
		"very_negative": 0,
		"negative":      0,
		"neutral":       0,
		"positive":      0,
		"very_positive": 0,
	}

	byParticipant := make(map[string][]MessageSentiment)
	total := 0.0
	for _, r := range results {
		distribution[r.Sentiment]++
		scoreDist[scoreBucket(r.Score)]++
		byParticipant[r.Sender] = append(byParticipant[r.Sender], r)
		total += r.Score
	}

	overall := 0.0
	if len(results) > 0 {
		overall = total / float64(len(results))
	}

	participants := make(map[string]ParticipantSentiment, len(byParticipant))
	for name, list := range byParticipant {
		participants[name] = participantAggregate(list)
	}

	return &Report{
		OverallSentiment:      classify(overall, aggregateThreshold),
		SentimentScore:        round2(overall),
		MessageSentiments:     results,
		ParticipantSentiments: participants,
		Distribution:          distribution,
		ScoreDistribution:     scoreDist,
		Method:                method,
		TotalMessages:         len(results),
	}
}

func participantAggregate(list []MessageSentiment) ParticipantSentiment {
	p := ParticipantSentiment{MessageCount: len(list)}
	total := 0.0
	for _, r := range list {
		total += r.Score
		switch r.Sentiment {
		case "positive":
			p.Positive++
		case "negative":
			p.Negative++
		default:
			p.Neutral++
		}
	}
	avg := total / float64(len(list))
	p.Score = round2(avg)
	p.Sentiment = classify(avg, aggregateThreshold)
	return p
}

func classify(score, threshold float64) string {
	switch {
	case score > threshold:
		return "positive"
	case score < -threshold:
		return "negative"
	default:
		return "neutral"
	}
}

func scoreBucket(score float64) string {
	switch {
	case score <= -0.6:
		return "very_negative"
	case score <= -0.2:
		return "negative"
	case score < 0.2:
		return "neutral"
	case score < 0.6:
		return "positive"
	default:
		return "very_positive"
	}
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength])
}

func conversationID(conv *model.Conversation) string {
	if conv == nil {
		return ""
	}
	return conv.ID
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
