// Package wordfreq computes word usage statistics: totals, most common
// words, word-cloud data, and vocabulary diversity.
package wordfreq

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"chatlytics-server/pkg/errors"
	"chatlytics-server/pkg/model"
)

const (
	maxMostCommon = 50
	maxCloudWords = 100
)

var wordPattern = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
		"of", "with", "by", "from", "as", "is", "was", "are", "were", "been",
		"be", "have", "has", "had", "do", "does", "did", "will", "would",
		"could", "should", "may", "might", "can", "this", "that", "these",
		"those", "i", "you", "he", "she", "it", "we", "they", "what", "which",
		"who", "when", "where", "why", "how",
	} {
		stopwords[w] = struct{}{}
	}
}

// WordCount is one word with its count and its share of all words as a
// percentage. The total includes stopwords even though stopwords are
// excluded from the list itself.
type WordCount struct {
	Word      string  `json:"word"`
	Count     int     `json:"count"`
	Frequency float64 `json:"frequency"`
}

// CloudWord is a word-cloud entry.
type CloudWord struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

// Report is the word frequency output.
type Report struct {
	TotalWords             int            `json:"total_words"`
	UniqueWords            int            `json:"unique_words"`
	MostCommon             []WordCount    `json:"most_common"`
	WordCloudData          []CloudWord    `json:"word_cloud_data"`
	ParticipantWordCounts  map[string]int `json:"participant_word_counts"`
	AverageWordsPerMessage float64        `json:"average_words_per_message"`
	VocabularyDiversity    float64        `json:"vocabulary_diversity"`
}

// Analyzer computes word statistics.
type Analyzer struct {
	logger *logrus.Entry
}

// NewAnalyzer builds a word frequency analyzer.
func NewAnalyzer(logger *logrus.Logger) *Analyzer {
	return &Analyzer{logger: logger.WithField("component", "wordfreq")}
}

// Analyze tokenizes every message and aggregates the counts.
func (a *Analyzer) Analyze(conv *model.Conversation) (*Report, error) {
	if conv == nil || conv.Len() == 0 {
		id := ""
		if conv != nil {
			id = conv.ID
		}
		return nil, errors.NewEmptyConversation(id)
	}

	counts := make(map[string]int)
	participantCounts := make(map[string]int)
	for _, name := range conv.ParticipantNames() {
		participantCounts[name] = 0
	}

	totalWords := 0
	for _, m := range conv.Messages {
		words := wordPattern.FindAllString(strings.ToLower(m.Content), -1)
		for _, w := range words {
			counts[w]++
		}
		totalWords += len(words)
		participantCounts[m.Sender] += len(words)
	}

	filtered := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		if _, skip := stopwords[w]; skip {
			continue
		}
		filtered = append(filtered, WordCount{Word: w, Count: c})
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Count != filtered[j].Count {
			return filtered[i].Count > filtered[j].Count
		}
		return filtered[i].Word < filtered[j].Word
	})

	mostCommon := make([]WordCount, 0, maxMostCommon)
	for i, wc := range filtered {
		if i >= maxMostCommon {
			break
		}
		if totalWords > 0 {
			wc.Frequency = round2(float64(wc.Count) / float64(totalWords) * 100)
		}
		mostCommon = append(mostCommon, wc)
	}

	cloud := make([]CloudWord, 0, maxCloudWords)
	for i, wc := range filtered {
		if i >= maxCloudWords {
			break
		}
		cloud = append(cloud, CloudWord{Text: wc.Word, Value: wc.Count})
	}

	avgWords := 0.0
	diversity := 0.0
	if conv.Len() > 0 {
		avgWords = float64(totalWords) / float64(conv.Len())
	}
	if totalWords > 0 {
		diversity = float64(len(counts)) / float64(totalWords)
	}

	return &Report{
		TotalWords:             totalWords,
		UniqueWords:            len(counts),
		MostCommon:             mostCommon,
		WordCloudData:          cloud,
		ParticipantWordCounts:  participantCounts,
		AverageWordsPerMessage: round2(avgWords),
		VocabularyDiversity:    math.Round(diversity*1000) / 1000,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
