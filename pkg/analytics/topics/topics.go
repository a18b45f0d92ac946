// Package topics extracts keywords and main discussion topics from a
// conversation. Keyword extraction is purely local; the main-topic list can
// additionally be produced by the completion API when one is configured.
package topics

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"chatlytics-server/pkg/errors"
	"chatlytics-server/pkg/llm"
	"chatlytics-server/pkg/model"
)

const (
	maxKeywords          = 50
	maxDistribution      = 10
	maxParticipantTopics = 5
	maxMainTopics        = 7
	remoteSampleSize     = 100
	remotePromptBudget   = 4000
)

var wordPattern = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)

// stopwords are filtered before counting. The set deliberately includes chat
// contractions with the apostrophe stripped, since tokenization drops it.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
		"of", "with", "by", "from", "as", "is", "was", "are", "were", "been",
		"be", "have", "has", "had", "do", "does", "did", "will", "would",
		"could", "should", "may", "might", "can", "this", "that", "these",
		"those", "i", "you", "he", "she", "it", "we", "they", "what", "which",
		"who", "when", "where", "why", "how", "all", "each", "every", "both",
		"few", "more", "most", "other", "some", "such", "no", "nor", "not",
		"only", "own", "same", "so", "than", "too", "very", "just", "my",
		"me", "your", "his", "her", "its", "our", "their", "im", "ive", "dont",
	} {
		stopwords[w] = struct{}{}
	}
}

// Keyword is one extracted keyword with its share of the filtered word total.
type Keyword struct {
	Word      string  `json:"word"`
	Count     int     `json:"count"`
	Relevance float64 `json:"relevance"`
}

// Report is the topic analysis output.
type Report struct {
	Topics            []string            `json:"main_topics"`
	Keywords          []Keyword           `json:"keywords"`
	TopicDistribution map[string]int      `json:"topic_distribution"`
	ParticipantTopics map[string][]string `json:"participant_topics"`
	Method            string              `json:"method"`
	MessagesAnalyzed  int                 `json:"total_messages_analyzed"`
}

// Analyzer extracts topics. client may be nil, in which case only the
// keyword path runs.
type Analyzer struct {
	logger *logrus.Entry
	client *llm.Client
	model  string
	useAI  bool
}

// NewAnalyzer builds a topic analyzer. model overrides the per-task default
// when non-empty.
func NewAnalyzer(client *llm.Client, model string, useAI bool, logger *logrus.Logger) *Analyzer {
	return &Analyzer{
		logger: logger.WithField("component", "topics"),
		client: client,
		model:  llm.PickModel(llm.TaskTopicExtraction, model),
		useAI:  useAI && client != nil,
	}
}

// Analyze extracts keywords, topic distribution, and per-participant topics.
func (a *Analyzer) Analyze(ctx context.Context, conv *model.Conversation) (*Report, error) {
	if conv == nil || conv.Len() == 0 {
		id := ""
		if conv != nil {
			id = conv.ID
		}
		return nil, errors.NewEmptyConversation(id)
	}

	keywords := extractKeywords(conv.Messages)
	report := &Report{
		Keywords:          keywords,
		TopicDistribution: topicDistribution(keywords),
		ParticipantTopics: participantTopics(conv),
		Method:            "keyword",
		MessagesAnalyzed:  conv.Len(),
	}

	if a.useAI {
		msgs := conv.SortedMessages()
		sampled := sampleMessages(msgs, remoteSampleSize)
		topics, err := a.remoteTopics(ctx, sampled)
		if err != nil {
			a.logger.WithError(err).Warn("Remote topic extraction failed, using keywords")
		} else {
			report.Topics = topics
			report.Method = "ai"
			report.MessagesAnalyzed = len(sampled)
		}
	}

	if len(report.Topics) == 0 {
		report.Topics = topWords(keywords, maxMainTopics)
	}
	return report, nil
}

// extractKeywords tokenizes all message content, drops stopwords, and returns
// the most frequent words with their relevance as a percentage of the
// filtered total.
func extractKeywords(msgs []model.Message) []Keyword {
	counts := make(map[string]int)
	total := 0
	for _, m := range msgs {
		for _, w := range wordPattern.FindAllString(strings.ToLower(m.Content), -1) {
			if _, skip := stopwords[w]; skip {
				continue
			}
			counts[w]++
			total++
		}
	}
	if total == 0 {
		return []Keyword{}
	}

	keywords := make([]Keyword, 0, len(counts))
	for w, c := range counts {
		keywords = append(keywords, Keyword{
			Word:      w,
			Count:     c,
			Relevance: math.Round(float64(c)/float64(total)*100*100) / 100,
		})
	}
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Count != keywords[j].Count {
			return keywords[i].Count > keywords[j].Count
		}
		return keywords[i].Word < keywords[j].Word
	})
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

func topicDistribution(keywords []Keyword) map[string]int {
	dist := make(map[string]int)
	for i, kw := range keywords {
		if i >= maxDistribution {
			break
		}
		dist[kw.Word] = kw.Count
	}
	return dist
}

func participantTopics(conv *model.Conversation) map[string][]string {
	byParticipant := make(map[string][]model.Message)
	for _, m := range conv.Messages {
		byParticipant[m.Sender] = append(byParticipant[m.Sender], m)
	}

	result := make(map[string][]string, len(byParticipant))
	for _, name := range conv.ParticipantNames() {
		msgs := byParticipant[name]
		if len(msgs) == 0 {
			continue
		}
		result[name] = topWords(extractKeywords(msgs), maxParticipantTopics)
	}
	return result
}

func topWords(keywords []Keyword, n int) []string {
	words := make([]string, 0, n)
	for i, kw := range keywords {
		if i >= n {
			break
		}
		words = append(words, kw.Word)
	}
	return words
}

// sampleMessages takes every k-th message so at most limit survive, keeping
// the conversation's chronological spread.
func sampleMessages(msgs []model.Message, limit int) []model.Message {
	if len(msgs) <= limit {
		return msgs
	}
	step := len(msgs) / limit
	sampled := make([]model.Message, 0, limit)
	for i := 0; i < len(msgs) && len(sampled) < limit; i += step {
		sampled = append(sampled, msgs[i])
	}
	return sampled
}

func (a *Analyzer) remoteTopics(ctx context.Context, msgs []model.Message) ([]string, error) {
	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "[%s]: %s\n", m.Sender, m.Content)
	}
	text := sb.String()
	if len(text) > remotePromptBudget {
		text = text[:remotePromptBudget]
	}

	prompt := fmt.Sprintf(`Analyze this conversation and identify the main topics being discussed.

Conversation:
%s

List the top 5-7 main topics discussed. Format: one topic per line, concise.
Topics:`, text)

	resp, err := a.client.Complete(ctx, a.model, prompt, llm.CompletionOptions{
		Task:        llm.TaskTopicExtraction,
		Temperature: 0.5,
		MaxTokens:   200,
	})
	if err != nil {
		return nil, err
	}

	topics := make([]string, 0, maxMainTopics)
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "1234567890.-) ")
		if line == "" {
			continue
		}
		topics = append(topics, line)
		if len(topics) == maxMainTopics {
			break
		}
	}
	return topics, nil
}
