// Package analytics orchestrates the individual analyzers into a single
// conversation analysis pipeline. One failed analyzer never aborts the run;
// its slot carries the error and every other analyzer still reports.
package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chatlytics-server/pkg/analytics/activity"
	"chatlytics-server/pkg/analytics/calllog"
	"chatlytics-server/pkg/analytics/content"
	"chatlytics-server/pkg/analytics/network"
	"chatlytics-server/pkg/analytics/sentiment"
	"chatlytics-server/pkg/analytics/topics"
	"chatlytics-server/pkg/analytics/wordfreq"
	"chatlytics-server/pkg/config"
	"chatlytics-server/pkg/errors"
	"chatlytics-server/pkg/llm"
	"chatlytics-server/pkg/metrics"
	"chatlytics-server/pkg/model"
)

// ConversationInfo is the basic conversation metadata attached to every
// result.
type ConversationInfo struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Platform          string   `json:"platform"`
	Type              string   `json:"type"`
	TotalMessages     int      `json:"total_messages"`
	TotalParticipants int      `json:"total_participants"`
	Participants      []string `json:"participants"`
}

// Result is the aggregated output of one analysis run. A nil report pointer
// means the analyzer did not run or failed; failures carry their message in
// Errors under the analyzer's result key.
type Result struct {
	ReportID         string           `json:"report_id"`
	ConversationInfo ConversationInfo `json:"conversation_info"`

	CallLog       *calllog.Report   `json:"call_log,omitempty"`
	Sentiment     *sentiment.Report `json:"sentiment,omitempty"`
	Topics        *topics.Report    `json:"topics,omitempty"`
	WordFrequency *wordfreq.Report  `json:"word_frequency,omitempty"`
	Activity      *activity.Report  `json:"activity,omitempty"`
	Content       *content.Report   `json:"content_analysis,omitempty"`
	Network       *network.Report   `json:"network_graph,omitempty"`

	Summary        Summary           `json:"summary"`
	Errors         map[string]string `json:"errors,omitempty"`
	ProcessingTime float64           `json:"processing_time"`
}

// Engine wires the analyzers together.
type Engine struct {
	logger *logrus.Logger
	cfg    *config.Config

	sentiment *sentiment.Engine
	topics    *topics.Analyzer
	wordfreq  *wordfreq.Analyzer
	activity  *activity.Analyzer
	calllog   *calllog.Analyzer
	content   *content.Analyzer
	network   *network.Analyzer
}

// NewEngine builds an engine from configuration. Each engine owns its own
// remote client; concurrent analyses should use one engine per goroutine.
func NewEngine(cfg *config.Config, logger *logrus.Logger) *Engine {
	client := llm.NewClient(cfg.GroqAPIKey, logger)

	return &Engine{
		logger:    logger,
		cfg:       cfg,
		sentiment: sentiment.NewEngine(client, cfg.LLMModel, cfg.UseAI, cfg.UseEnsemble, logger),
		topics:    topics.NewAnalyzer(client, cfg.LLMModel, cfg.UseAI, logger),
		wordfreq:  wordfreq.NewAnalyzer(logger),
		activity:  activity.NewAnalyzer(logger),
		calllog:   calllog.NewAnalyzer(logger),
		content:   content.NewAnalyzer(client, cfg.LLMModel, cfg.UseAI, logger),
		network:   network.NewAnalyzer(logger),
	}
}

// Analyze runs the full pipeline over one conversation. Only a structurally
// empty conversation returns an error.
func (e *Engine) Analyze(ctx context.Context, conv *model.Conversation) (*Result, error) {
	start := time.Now()

	if conv == nil || conv.Len() == 0 {
		id := ""
		if conv != nil {
			id = conv.ID
		}
		metrics.RecordAnalysis("invalid", 0, time.Since(start))
		return nil, errors.NewEmptyConversation(id)
	}

	result := &Result{
		ReportID:         uuid.New().String(),
		ConversationInfo: conversationInfo(conv),
		Errors:           make(map[string]string),
	}

	// Call log classification runs first; a detected call log narrows the
	// remaining analyzers to the ones that make sense for calls.
	e.run(result, "call_log", func() error {
		result.CallLog = e.calllog.Analyze(conv)
		return nil
	})

	isCallLog := result.CallLog != nil && result.CallLog.IsCallLog
	if isCallLog {
		e.logger.Info("Call log detected, running call specific analytics")
	}

	if !isCallLog && e.cfg.AnalyzerEnabled("sentiment") {
		e.run(result, "sentiment", func() error {
			report, err := e.sentiment.Analyze(ctx, conv)
			result.Sentiment = report
			return err
		})
	}

	if !isCallLog && e.cfg.AnalyzerEnabled("topics") {
		e.run(result, "topics", func() error {
			report, err := e.topics.Analyze(ctx, conv)
			result.Topics = report
			return err
		})
	}

	if e.cfg.AnalyzerEnabled("word_frequency") {
		e.run(result, "word_frequency", func() error {
			report, err := e.wordfreq.Analyze(conv)
			result.WordFrequency = report
			return err
		})
	}

	if e.cfg.AnalyzerEnabled("activity") {
		e.run(result, "activity", func() error {
			report, err := e.activity.Analyze(conv)
			result.Activity = report
			return err
		})
	}

	if !isCallLog && e.cfg.UseAI && e.cfg.AnalyzerEnabled("content") {
		e.run(result, "content_analysis", func() error {
			report, err := e.content.Analyze(ctx, conv)
			result.Content = report
			return err
		})
	}

	if len(conv.ParticipantNames()) > 1 && e.cfg.AnalyzerEnabled("network") {
		e.run(result, "network_graph", func() error {
			report, err := e.network.Analyze(conv)
			result.Network = report
			return err
		})
	}

	result.Summary = buildSummary(result)

	elapsed := time.Since(start)
	result.ProcessingTime = math.Round(elapsed.Seconds()*1000) / 1000
	if result.ProcessingTime <= 0 {
		result.ProcessingTime = 0.001
	}

	status := "success"
	if len(result.Errors) > 0 {
		status = "partial"
	}
	metrics.RecordAnalysis(status, conv.Len(), elapsed)

	e.logger.WithFields(logrus.Fields{
		"report_id":       result.ReportID,
		"conversation_id": conv.ID,
		"processing_time": result.ProcessingTime,
		"failed":          len(result.Errors),
	}).Info("Analysis complete")

	return result, nil
}

// run executes one analyzer, catching both returned errors and panics so the
// rest of the pipeline keeps going.
func (e *Engine) run(result *Result, name string, fn func() error) {
	done := metrics.ObserveAnalyzer(name)
	defer done()

	defer func() {
		if r := recover(); r != nil {
			result.Errors[name] = fmt.Sprintf("%v", r)
			metrics.RecordAnalyzerRun(name, "panic")
			e.logger.WithField("analyzer", name).Errorf("Analyzer panicked: %v", r)
		}
	}()

	e.logger.WithField("analyzer", name).Debug("Running analyzer")
	if err := fn(); err != nil {
		result.Errors[name] = err.Error()
		metrics.RecordAnalyzerRun(name, "error")
		e.logger.WithError(err).WithField("analyzer", name).Error("Analyzer failed")
		return
	}
	metrics.RecordAnalyzerRun(name, "success")
}

func conversationInfo(conv *model.Conversation) ConversationInfo {
	return ConversationInfo{
		ID:                conv.ID,
		Title:             conv.Title,
		Platform:          conv.Platform,
		Type:              conv.Type,
		TotalMessages:     conv.Len(),
		TotalParticipants: len(conv.ParticipantNames()),
		Participants:      conv.ParticipantNames(),
	}
}

// Map renders the result in the analyzer-name to report map shape used by
// serialization consumers. Failed analyzers appear as {"error": message}.
func (r *Result) Map() map[string]interface{} {
	out := map[string]interface{}{
		"report_id":         r.ReportID,
		"conversation_info": r.ConversationInfo,
		"summary":           r.Summary,
		"processing_time":   r.ProcessingTime,
	}

	slot := func(name string, report interface{}, present bool) {
		if msg, failed := r.Errors[name]; failed {
			out[name] = map[string]interface{}{"error": msg}
			return
		}
		if present {
			out[name] = report
		}
	}

	slot("call_log", r.CallLog, r.CallLog != nil)
	slot("sentiment", r.Sentiment, r.Sentiment != nil)
	slot("topics", r.Topics, r.Topics != nil)
	slot("word_frequency", r.WordFrequency, r.WordFrequency != nil)
	slot("activity", r.Activity, r.Activity != nil)
	slot("content_analysis", r.Content, r.Content != nil)
	slot("network_graph", r.Network, r.Network != nil)

	return out
}
