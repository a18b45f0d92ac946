package activity

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlytics-server/pkg/errors"
	"chatlytics-server/pkg/model"
)

var baseTime = time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC) // a Monday

func testAnalyzer() *Analyzer {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return NewAnalyzer(logger)
}

func conversation(msgs ...model.Message) *model.Conversation {
	return &model.Conversation{ID: "test", Messages: msgs}
}

func msg(sender string, offset time.Duration) model.Message {
	return model.Message{
		Sender:    sender,
		Content:   "hello there",
		Timestamp: baseTime.Add(offset),
	}
}

func TestEmptyConversation(t *testing.T) {
	_, err := testAnalyzer().Analyze(conversation())
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrEmptyConversation))
}

func TestHourlyBucketsAlwaysComplete(t *testing.T) {
	report, err := testAnalyzer().Analyze(conversation(msg("alice", 0)))
	require.NoError(t, err)

	require.Len(t, report.PerHour, 24)
	total := 0
	for h, b := range report.PerHour {
		assert.Equal(t, h, b.Hour)
		total += b.Count
	}
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, report.PerHour[14].Count)
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	conv := conversation(
		msg("alice", 0),
		msg("bob", 5*time.Minute),
		msg("alice", 12*time.Minute),
		msg("bob", 45*time.Minute),
	)

	first, err := testAnalyzer().Analyze(conv)
	require.NoError(t, err)
	second, err := testAnalyzer().Analyze(conv)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResponseTimesSenderChangesOnly(t *testing.T) {
	conv := conversation(
		msg("alice", 0),
		msg("alice", 5*time.Minute),
		msg("bob", 10*time.Minute),
	)

	report, err := testAnalyzer().Analyze(conv)
	require.NoError(t, err)

	assert.Equal(t, 1, report.ResponseTimes.SampleSize)
	assert.Equal(t, 300.0, report.ResponseTimes.AverageSeconds)
	assert.Equal(t, 5.0, report.ResponseTimes.MedianMinutes)
}

func TestResponseTimesExcludeDormantGaps(t *testing.T) {
	conv := conversation(
		msg("alice", 0),
		msg("bob", 25*time.Hour),
		msg("alice", 25*time.Hour+3*time.Minute),
	)

	report, err := testAnalyzer().Analyze(conv)
	require.NoError(t, err)

	assert.Equal(t, 1, report.ResponseTimes.SampleSize)
	assert.Equal(t, 180.0, report.ResponseTimes.AverageSeconds)
}

func TestBurstDetected(t *testing.T) {
	msgs := make([]model.Message, 0, 10)
	for i := 0; i < 10; i++ {
		msgs = append(msgs, msg("alice", time.Duration(i*6)*time.Second))
	}

	report, err := testAnalyzer().Analyze(conversation(msgs...))
	require.NoError(t, err)

	require.Len(t, report.BurstPeriods, 1)
	burst := report.BurstPeriods[0]
	assert.Equal(t, 10, burst.MessageCount)
	assert.Greater(t, burst.MessagesPerHour, 10.0)
}

func TestSlowTrafficIsNotABurst(t *testing.T) {
	msgs := make([]model.Message, 0, 10)
	for i := 0; i < 10; i++ {
		msgs = append(msgs, msg("alice", time.Duration(i*13)*time.Minute))
	}

	report, err := testAnalyzer().Analyze(conversation(msgs...))
	require.NoError(t, err)
	assert.Empty(t, report.BurstPeriods)
}

func TestDormantPeriodThreshold(t *testing.T) {
	conv := conversation(
		msg("alice", 0),
		msg("bob", 25*time.Hour),
	)
	report, err := testAnalyzer().Analyze(conv)
	require.NoError(t, err)
	require.Len(t, report.DormantPeriods, 1)
	assert.Equal(t, 25.0, report.DormantPeriods[0].DurationHours)

	conv = conversation(
		msg("alice", 0),
		msg("bob", 23*time.Hour),
	)
	report, err = testAnalyzer().Analyze(conv)
	require.NoError(t, err)
	assert.Empty(t, report.DormantPeriods)
}

func TestBusiestBuckets(t *testing.T) {
	conv := conversation(
		msg("alice", 0),
		msg("bob", 10*time.Minute),
		msg("alice", 20*time.Minute),
		msg("bob", 26*time.Hour),
	)

	report, err := testAnalyzer().Analyze(conv)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-04", report.BusiestDay.Label)
	assert.Equal(t, 3, report.BusiestDay.Count)
	assert.Equal(t, 14, report.BusiestHour)
	assert.Equal(t, 3, report.PerWeekday["Monday"])
	assert.Equal(t, 1, report.PerWeekday["Tuesday"])
}

func TestParticipantActivity(t *testing.T) {
	conv := conversation(
		msg("alice", 0),
		msg("alice", 5*time.Minute),
		msg("alice", 10*time.Minute),
		msg("bob", 15*time.Minute),
	)

	report, err := testAnalyzer().Analyze(conv)
	require.NoError(t, err)

	assert.Equal(t, "alice", report.MostActiveParticipant)
	alice := report.ParticipantActivity["alice"]
	assert.Equal(t, 3, alice.MessageCount)
	assert.Equal(t, 75.0, alice.Percentage)
	assert.Equal(t, 14, alice.MostActiveHour)
	assert.Equal(t, baseTime, alice.FirstMessage)
	assert.Equal(t, baseTime.Add(10*time.Minute), alice.LastMessage)
}

func TestVelocitySessions(t *testing.T) {
	conv := conversation(
		msg("alice", 0),
		msg("bob", 5*time.Minute),
		msg("alice", 10*time.Minute),
		msg("bob", 2*time.Hour), // idle gap starts a new session
		msg("alice", 2*time.Hour+5*time.Minute),
	)

	report, err := testAnalyzer().Analyze(conv)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Velocity.TotalSessions)
	assert.Equal(t, 3, report.Velocity.LongestSession)
	assert.Equal(t, 2, report.Velocity.ShortestSession)
	assert.Equal(t, 2.5, report.Velocity.AveragePerSession)
	assert.Equal(t, 30.0, report.Velocity.GapThresholdMinute)
}

func TestFrequencyDistribution(t *testing.T) {
	conv := conversation(
		msg("alice", 0),
		msg("bob", 30*time.Second),  // very_high
		msg("alice", 5*time.Minute), // high
		msg("bob", 30*time.Minute),  // medium
		msg("alice", 3*time.Hour),   // low
		msg("bob", 12*time.Hour),    // very_low
	)

	report, err := testAnalyzer().Analyze(conv)
	require.NoError(t, err)

	freq := report.Frequency
	assert.Equal(t, 5, freq.SampleSize)
	assert.Equal(t, 1, freq.Distribution["very_high"])
	assert.Equal(t, 1, freq.Distribution["high"])
	assert.Equal(t, 1, freq.Distribution["medium"])
	assert.Equal(t, 1, freq.Distribution["low"])
	assert.Equal(t, 1, freq.Distribution["very_low"])
	assert.Equal(t, 6.0, freq.MessagesPerDayAverage)
}

func TestSingleMessageDegrades(t *testing.T) {
	report, err := testAnalyzer().Analyze(conversation(msg("alice", 0)))
	require.NoError(t, err)

	assert.Equal(t, 0, report.ResponseTimes.SampleSize)
	assert.Equal(t, 0, report.Frequency.SampleSize)
	assert.Equal(t, 0, report.Velocity.TotalSessions)
	assert.Empty(t, report.BurstPeriods)
	assert.Empty(t, report.DormantPeriods)
	assert.Equal(t, "0 minutes", report.ConversationDuration.HumanReadable)
}
