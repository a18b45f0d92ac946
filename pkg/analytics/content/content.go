// Package content analyzes message content for statement types, emotional
// intensity, urgency, language complexity, communication dynamics, and
// remote safety classification.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"

	"chatlytics-server/pkg/errors"
	"chatlytics-server/pkg/llm"
	"chatlytics-server/pkg/model"
)

const (
	safetySampleSize   = 50
	safetyPreviewChars = 200
	urgentPreviewChars = 100
	maxUrgentMessages  = 10
	initiationGap      = time.Hour
)

var urgencyKeywords = []string{
	"urgent", "asap", "emergency", "immediately", "right now", "hurry",
	"critical", "important", "priority", "quickly", "fast", "!!!", "!!",
	"now", "today", "tonight",
}

var questionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\?$`),
	regexp.MustCompile(`(?i)^(what|when|where|why|who|how|which|can|could|would|should|is|are|do|does|did)`),
}

var commandPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(please|pls|go|come|send|give|show|tell|let|make|do|stop|start)`),
}

// SafetyReport is the remote harmful-content classification. Without a
// configured backend only Method and Note are set.
type SafetyReport struct {
	Method                string   `json:"method"`
	Note                  string   `json:"note,omitempty"`
	OverallToxicity       string   `json:"overall_toxicity,omitempty"`
	IssuesFound           []string `json:"issues_found,omitempty"`
	FlaggedMessageNumbers []int    `json:"flagged_message_numbers,omitempty"`
	SafetyScore           int      `json:"safety_score,omitempty"`
	Summary               string   `json:"summary,omitempty"`
	Model                 string   `json:"model,omitempty"`
	MessagesAnalyzed      int      `json:"messages_analyzed,omitempty"`
	Error                 string   `json:"error,omitempty"`
}

// StatementTypes classifies messages as questions, commands, exclamations,
// or assertions.
type StatementTypes struct {
	Counts        map[string]int     `json:"counts"`
	Percentages   map[string]float64 `json:"percentages"`
	TotalAnalyzed int                `json:"total_analyzed"`
	DominantType  string             `json:"dominant_type"`
}

// EmotionalIntensity buckets messages by emphasis markers.
type EmotionalIntensity struct {
	Distribution     map[string]int     `json:"intensity_distribution"`
	Percentages      map[string]float64 `json:"percentages"`
	AverageIntensity string             `json:"average_intensity"`
}

// UrgentMessage is one message carrying urgency markers.
type UrgentMessage struct {
	MessageNumber int       `json:"message_number"`
	Sender        string    `json:"sender"`
	Content       string    `json:"content"`
	Timestamp     time.Time `json:"timestamp"`
}

// UrgencyReport summarizes urgency markers across the conversation.
type UrgencyReport struct {
	UrgentMessageCount int             `json:"urgent_message_count"`
	TotalMessages      int             `json:"total_messages"`
	UrgencyPercentage  float64         `json:"urgency_percentage"`
	UrgentMessages     []UrgentMessage `json:"urgent_messages"`
	HasUrgentContent   bool            `json:"has_urgent_content"`
}

// Complexity estimates vocabulary and reading level.
type Complexity struct {
	AverageWordLength     float64 `json:"average_word_length"`
	AverageSentenceLength float64 `json:"average_sentence_length"`
	EstimatedReadingLevel float64 `json:"estimated_reading_level"`
	ComplexityRating      string  `json:"complexity_rating"`
	TotalWords            int     `json:"total_words"`
	TotalSentences        int     `json:"total_sentences"`
}

// Dynamics tracks who initiates contact after quiet gaps and who responds.
type Dynamics struct {
	Note                    string         `json:"note,omitempty"`
	ConversationInitiations map[string]int `json:"conversation_initiations,omitempty"`
	ResponseCounts          map[string]int `json:"response_counts,omitempty"`
	MostLikelyInitiator     string         `json:"most_likely_initiator,omitempty"`
	MostResponsive          string         `json:"most_responsive,omitempty"`
}

// Report is the content analysis output.
type Report struct {
	Safety                SafetyReport       `json:"hate_speech_analysis"`
	StatementTypes        StatementTypes     `json:"statement_types"`
	EmotionalIntensity    EmotionalIntensity `json:"emotional_intensity"`
	Urgency               UrgencyReport      `json:"urgency_analysis"`
	LanguageComplexity    Complexity         `json:"language_complexity"`
	CommunicationDynamics Dynamics           `json:"communication_dynamics"`
}

// Analyzer runs the content checks. client may be nil.
type Analyzer struct {
	logger *logrus.Entry
	client *llm.Client
	model  string
	useAI  bool
}

// NewAnalyzer builds a content analyzer. model overrides the per-task default
// when non-empty.
func NewAnalyzer(client *llm.Client, model string, useAI bool, logger *logrus.Logger) *Analyzer {
	return &Analyzer{
		logger: logger.WithField("component", "content"),
		client: client,
		model:  llm.PickModel(llm.TaskSafety, model),
		useAI:  useAI && client != nil,
	}
}

// Analyze runs every content check over the conversation.
func (a *Analyzer) Analyze(ctx context.Context, conv *model.Conversation) (*Report, error) {
	if conv == nil || conv.Len() == 0 {
		id := ""
		if conv != nil {
			id = conv.ID
		}
		return nil, errors.NewEmptyConversation(id)
	}

	return &Report{
		Safety:                a.analyzeSafety(ctx, conv),
		StatementTypes:        analyzeStatementTypes(conv),
		EmotionalIntensity:    analyzeIntensity(conv),
		Urgency:               analyzeUrgency(conv),
		LanguageComplexity:    analyzeComplexity(conv),
		CommunicationDynamics: analyzeDynamics(conv),
	}, nil
}

func (a *Analyzer) analyzeSafety(ctx context.Context, conv *model.Conversation) SafetyReport {
	if !a.useAI {
		return SafetyReport{Method: "keyword", Note: "AI analysis not available"}
	}

	sample := conv.Messages
	if len(sample) > safetySampleSize {
		sample = sample[:safetySampleSize]
	}

	var sb strings.Builder
	for i, m := range sample {
		fmt.Fprintf(&sb, "%d. [%s]: %s\n", i+1, m.Sender, truncateRunes(m.Content, safetyPreviewChars))
	}

	prompt := fmt.Sprintf(`Analyze this conversation for harmful content. Look for:
- Hate speech (racism, sexism, homophobia, etc.)
- Threats or violence
- Harassment or bullying
- Toxic language
- Offensive slurs

Conversation (%d messages):
%s

Respond in JSON format:
{
  "overall_toxicity": "none/low/medium/high",
  "issues_found": ["list of specific issues, if any"],
  "flagged_message_numbers": [list of message numbers with issues],
  "safety_score": 0-100,
  "summary": "brief summary"
}`, len(sample), sb.String())

	resp, err := a.client.Complete(ctx, a.model, prompt, llm.CompletionOptions{
		Task:        llm.TaskSafety,
		Temperature: 0.1,
		MaxTokens:   500,
	})
	if err == nil {
		var report SafetyReport
		err = json.Unmarshal([]byte(stripFences(resp)), &report)
		if err == nil {
			report.Method = "ai"
			report.Model = a.model
			report.MessagesAnalyzed = len(sample)
			return report
		}
	}

	a.logger.WithError(err).Error("Safety analysis failed")
	return SafetyReport{Method: "ai", OverallToxicity: "unknown", Error: err.Error()}
}

// stripFences removes a markdown code fence wrapper if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// truncateRunes shortens content to n runes so multibyte characters are never
// split mid-sequence.
func truncateRunes(content string, n int) string {
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n])
}

func analyzeStatementTypes(conv *model.Conversation) StatementTypes {
	counts := map[string]int{
		"questions":    0,
		"commands":     0,
		"assertions":   0,
		"exclamations": 0,
	}

	for _, m := range conv.Messages {
		content := strings.ToLower(strings.TrimSpace(m.Content))
		switch {
		case matchesAny(content, questionPatterns):
			counts["questions"]++
		case matchesAny(content, commandPatterns):
			counts["commands"]++
		case strings.Count(content, "!") >= 2:
			counts["exclamations"]++
		default:
			counts["assertions"]++
		}
	}

	total := conv.Len()
	percentages := make(map[string]float64, len(counts))
	for k, c := range counts {
		percentages[k] = percent(c, total)
	}

	dominant := ""
	best := -1
	for _, k := range []string{"questions", "commands", "assertions", "exclamations"} {
		if counts[k] > best {
			best = counts[k]
			dominant = k
		}
	}

	return StatementTypes{
		Counts:        counts,
		Percentages:   percentages,
		TotalAnalyzed: total,
		DominantType:  dominant,
	}
}

func analyzeIntensity(conv *model.Conversation) EmotionalIntensity {
	dist := map[string]int{"high": 0, "medium": 0, "low": 0}

	for _, m := range conv.Messages {
		content := m.Content
		switch {
		case strings.Count(content, "!") >= 2 || strings.Count(content, "?") >= 2:
			dist["high"]++
		case isShouting(content):
			dist["high"]++
		case strings.Contains(content, "!") || strings.Contains(content, "?"):
			dist["medium"]++
		default:
			dist["low"]++
		}
	}

	total := conv.Len()
	percentages := make(map[string]float64, len(dist))
	for k, c := range dist {
		percentages[k] = percent(c, total)
	}

	return EmotionalIntensity{
		Distribution:     dist,
		Percentages:      percentages,
		AverageIntensity: averageIntensity(percentages),
	}
}

// isShouting reports whether every letter in a non-trivial message is
// uppercase.
func isShouting(content string) bool {
	if len(content) <= 10 {
		return false
	}
	hasLetter := false
	for _, r := range content {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func averageIntensity(percentages map[string]float64) string {
	score := (percentages["high"]*3 + percentages["medium"]*2 + percentages["low"]*1) / 100
	switch {
	case score > 2.5:
		return "high"
	case score > 1.5:
		return "medium"
	default:
		return "low"
	}
}

func analyzeUrgency(conv *model.Conversation) UrgencyReport {
	var urgent []UrgentMessage
	for i, m := range conv.Messages {
		content := strings.ToLower(m.Content)
		if !containsAny(content, urgencyKeywords) {
			continue
		}
		urgent = append(urgent, UrgentMessage{
			MessageNumber: i + 1,
			Sender:        m.Sender,
			Content:       truncateRunes(m.Content, urgentPreviewChars),
			Timestamp:     m.Timestamp,
		})
	}

	count := len(urgent)
	if len(urgent) > maxUrgentMessages {
		urgent = urgent[:maxUrgentMessages]
	}

	return UrgencyReport{
		UrgentMessageCount: count,
		TotalMessages:      conv.Len(),
		UrgencyPercentage:  percent(count, conv.Len()),
		UrgentMessages:     urgent,
		HasUrgentContent:   count > 0,
	}
}

func analyzeComplexity(conv *model.Conversation) Complexity {
	totalWords, totalSentences, totalChars := 0, 0, 0

	for _, m := range conv.Messages {
		words := strings.Fields(m.Content)
		totalWords += len(words)

		sentences := strings.Count(m.Content, ".") +
			strings.Count(m.Content, "!") +
			strings.Count(m.Content, "?")
		if sentences < 1 {
			sentences = 1
		}
		totalSentences += sentences
		totalChars += len(m.Content)
	}

	c := Complexity{TotalWords: totalWords, TotalSentences: totalSentences}
	if totalWords > 0 {
		c.AverageWordLength = round2(float64(totalChars) / float64(totalWords))
	}
	if totalSentences > 0 {
		c.AverageSentenceLength = round2(float64(totalWords) / float64(totalSentences))
	}
	if totalWords > 0 {
		level := 0.39*(float64(totalWords)/float64(totalSentences)) +
			11.8*(float64(totalChars)/float64(totalWords)) - 15.59
		c.EstimatedReadingLevel = math.Max(0, math.Round(level*10)/10)
	}
	c.ComplexityRating = rateComplexity(c.EstimatedReadingLevel)
	return c
}

func rateComplexity(level float64) string {
	switch {
	case level < 6:
		return "simple"
	case level < 10:
		return "moderate"
	case level < 14:
		return "complex"
	default:
		return "very_complex"
	}
}

func analyzeDynamics(conv *model.Conversation) Dynamics {
	if len(conv.ParticipantNames()) < 2 {
		return Dynamics{Note: "Single participant conversation"}
	}

	msgs := conv.SortedMessages()
	if len(msgs) < 2 {
		return Dynamics{}
	}

	initiations := map[string]int{msgs[0].Sender: 1}
	responses := make(map[string]int)
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.Sub(msgs[i-1].Timestamp) >= initiationGap {
			initiations[msgs[i].Sender]++
		}
		if msgs[i].Sender != msgs[i-1].Sender {
			responses[msgs[i].Sender]++
		}
	}

	return Dynamics{
		ConversationInitiations: initiations,
		ResponseCounts:          responses,
		MostLikelyInitiator:     argmax(initiations),
		MostResponsive:          argmax(responses),
	}
}

// argmax returns the key with the highest count, ties broken by name order.
func argmax(m map[string]int) string {
	best, bestCount := "", -1
	for k, v := range m {
		if v > bestCount || (v == bestCount && k < best) {
			best, bestCount = k, v
		}
	}
	return best
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*100*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
