package sentiment

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlytics-server/pkg/errors"
	"chatlytics-server/pkg/model"
)

func testConversation(contents ...string) *model.Conversation {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	msgs := make([]model.Message, 0, len(contents))
	senders := []string{"alice", "bob"}
	for i, c := range contents {
		msgs = append(msgs, model.Message{
			ID:        "m" + string(rune('0'+i)),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Sender:    senders[i%2],
			Content:   c,
			Type:      model.MessageTypeText,
		})
	}
	return &model.Conversation{ID: "conv-1", Messages: msgs}
}

func keywordEngine() *Engine {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return &Engine{
		logger:  logger.WithField("component", "sentiment"),
		keyword: NewKeywordScorer(),
	}
}

func TestKeywordScorer(t *testing.T) {
	s := NewKeywordScorer()

	tests := []struct {
		name string
		text string
		want func(t *testing.T, score float64)
	}{
		{
			name: "positive words",
			text: "this is great and awesome, thanks",
			want: func(t *testing.T, score float64) { assert.Equal(t, 1.0, score) },
		},
		{
			name: "negative words",
			text: "terrible awful garbage",
			want: func(t *testing.T, score float64) { assert.Equal(t, -1.0, score) },
		},
		{
			name: "no signal",
			text: "meeting at noon tomorrow",
			want: func(t *testing.T, score float64) { assert.Equal(t, 0.0, score) },
		},
		{
			name: "severe outweighs positive",
			text: "great day but he threatened me",
			want: func(t *testing.T, score float64) { assert.Negative(t, score) },
		},
		{
			name: "profanity counts double",
			text: "nice but this is shit",
			want: func(t *testing.T, score float64) { assert.Negative(t, score) },
		},
		{
			name: "shouting reads negative",
			text: "WHERE HAVE YOU BEEN ALL DAY",
			want: func(t *testing.T, score float64) { assert.Negative(t, score) },
		},
		{
			name: "exclamations amplify positive",
			text: "love it!!! great!!!",
			want: func(t *testing.T, score float64) { assert.Positive(t, score) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, _ := s.Score(tt.text)
			assert.GreaterOrEqual(t, score, -1.0)
			assert.LessOrEqual(t, score, 1.0)
			tt.want(t, score)
		})
	}
}

func TestKeywordScorerEmoji(t *testing.T) {
	s := NewKeywordScorer()

	score, meta := s.Score("see you there 😊")
	assert.Positive(t, score)
	assert.Equal(t, 1, meta["positive_hits"])

	score, _ = s.Score("can't believe it 💔")
	assert.Negative(t, score)
}

func TestClassifyThresholds(t *testing.T) {
	assert.Equal(t, "positive", classify(0.3, 0.2))
	assert.Equal(t, "negative", classify(-0.3, 0.2))
	assert.Equal(t, "neutral", classify(0.2, 0.2))
	assert.Equal(t, "neutral", classify(-0.2, 0.2))
	assert.Equal(t, "positive", classify(0.06, 0.05))
}

func TestScoreBucket(t *testing.T) {
	assert.Equal(t, "very_negative", scoreBucket(-0.8))
	assert.Equal(t, "very_negative", scoreBucket(-0.6))
	assert.Equal(t, "negative", scoreBucket(-0.3))
	assert.Equal(t, "neutral", scoreBucket(0.0))
	assert.Equal(t, "neutral", scoreBucket(0.19))
	assert.Equal(t, "positive", scoreBucket(0.2))
	assert.Equal(t, "very_positive", scoreBucket(0.6))
	assert.Equal(t, "very_positive", scoreBucket(1.0))
}

func TestAnalyzeEmptyConversation(t *testing.T) {
	e := keywordEngine()

	_, err := e.Analyze(context.Background(), &model.Conversation{ID: "empty"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrEmptyConversation))

	_, err = e.Analyze(context.Background(), nil)
	require.Error(t, err)
}

func TestAnalyzeDistributionCoversEveryMessage(t *testing.T) {
	e := keywordEngine()
	conv := testConversation(
		"what a wonderful day",
		"this is awful",
		"meeting at noon",
		"",
		"thanks, appreciate it",
	)

	report, err := e.Analyze(context.Background(), conv)
	require.NoError(t, err)

	sum := 0
	for _, n := range report.Distribution {
		sum += n
	}
	assert.Equal(t, conv.Len(), sum)
	assert.Equal(t, conv.Len(), report.TotalMessages)
	assert.Len(t, report.MessageSentiments, conv.Len())

	bucketSum := 0
	for _, n := range report.ScoreDistribution {
		bucketSum += n
	}
	assert.Equal(t, conv.Len(), bucketSum)
}

func TestAnalyzeKeywordMethod(t *testing.T) {
	e := keywordEngine()
	conv := testConversation("great work", "terrible idea", "ok")

	report, err := e.Analyze(context.Background(), conv)
	require.NoError(t, err)

	assert.Equal(t, "keyword", report.Method)
	assert.Equal(t, "positive", report.MessageSentiments[0].Sentiment)
	assert.Equal(t, "negative", report.MessageSentiments[1].Sentiment)
	assert.Equal(t, "neutral", report.MessageSentiments[2].Sentiment)
}

func TestAnalyzeParticipantAggregates(t *testing.T) {
	e := keywordEngine()
	conv := testConversation(
		"love this, wonderful",
		"awful terrible",
		"great great great",
		"worst garbage trash",
	)

	report, err := e.Analyze(context.Background(), conv)
	require.NoError(t, err)

	alice, ok := report.ParticipantSentiments["alice"]
	require.True(t, ok)
	assert.Equal(t, 2, alice.MessageCount)
	assert.Equal(t, "positive", alice.Sentiment)
	assert.Equal(t, 2, alice.Positive)

	bob, ok := report.ParticipantSentiments["bob"]
	require.True(t, ok)
	assert.Equal(t, "negative", bob.Sentiment)
	assert.Equal(t, 2, bob.Negative)
}

func TestEnsembleKeywordOnlyMatchesKeyword(t *testing.T) {
	keyword := NewKeywordScorer()
	ensemble := &ensembleScorer{keyword: keyword}

	for _, text := range []string{
		"what a great day",
		"this is terrible",
		"meeting at noon",
		"love it!!! awesome!!!",
	} {
		want, _ := keyword.Score(text)
		got, _ := ensemble.Score(text)
		assert.InDelta(t, want, got, 1e-9, "text %q", text)
	}
}

func TestEnsembleBlendsBackends(t *testing.T) {
	e := &ensembleScorer{
		vader:   NewVaderScorer(),
		keyword: NewKeywordScorer(),
	}

	score, meta := e.Score("this is absolutely wonderful")
	assert.Positive(t, score)
	assert.Contains(t, meta, "vader")
	assert.Contains(t, meta, "keyword")
	assert.NotContains(t, meta, "bayes")
}

func TestVaderScorer(t *testing.T) {
	s := NewVaderScorer()

	score, meta := s.Score("I love this, it is wonderful!")
	assert.Positive(t, score)
	assert.Contains(t, meta, "positive")

	score, _ = s.Score("I hate this, it is horrible")
	assert.Negative(t, score)
}

func TestEmptyContentIsNeutral(t *testing.T) {
	e := keywordEngine()
	conv := testConversation("")

	report, err := e.Analyze(context.Background(), conv)
	require.NoError(t, err)
	require.Len(t, report.MessageSentiments, 1)
	assert.Equal(t, "neutral", report.MessageSentiments[0].Sentiment)
	assert.Equal(t, 0.0, report.MessageSentiments[0].Score)
	assert.Empty(t, report.MessageSentiments[0].Preview)
}

func TestPreviewTruncation(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "0123456789"
	}
	assert.Len(t, []rune(preview(long)), previewLength)
	assert.Equal(t, "short", preview("short"))
}
