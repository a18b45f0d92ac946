package calllog

import (
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlytics-server/pkg/model"
)

func testAnalyzer() *Analyzer {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewAnalyzer(logger)
}

func message(sender, content string, ts time.Time) model.Message {
	return model.Message{
		ID:        fmt.Sprintf("m-%d", ts.UnixNano()),
		Timestamp: ts,
		Sender:    sender,
		Content:   content,
		Type:      model.MessageTypeText,
	}
}

func TestIsCallLogThreshold(t *testing.T) {
	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	// 3 of 10 sampled messages carry call indicators: exactly 30%.
	msgs := make([]model.Message, 0, 10)
	for i := 0; i < 10; i++ {
		content := "see you later"
		if i < 3 {
			content = "missed call"
		}
		msgs = append(msgs, message("alice", content, base.Add(time.Duration(i)*time.Minute)))
	}
	assert.True(t, testAnalyzer().IsCallLog(&model.Conversation{ID: "c", Messages: msgs}))

	// 2 of 10 is below the threshold.
	msgs[2].Content = "see you later"
	assert.False(t, testAnalyzer().IsCallLog(&model.Conversation{ID: "c", Messages: msgs}))
}

func TestIsCallLogEmpty(t *testing.T) {
	assert.False(t, testAnalyzer().IsCallLog(nil))
	assert.False(t, testAnalyzer().IsCallLog(&model.Conversation{ID: "c"}))
}

func TestNonCallLogResult(t *testing.T) {
	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	conv := &model.Conversation{ID: "c", Messages: []model.Message{
		message("alice", "lunch tomorrow?", base),
		message("bob", "sure thing", base.Add(time.Minute)),
	}}

	report := testAnalyzer().Analyze(conv)
	assert.False(t, report.IsCallLog)
	assert.NotEmpty(t, report.Message)
	assert.Zero(t, report.TotalCalls)
}

func TestExtractDuration(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"Call duration: 5m 32s", 332},
		{"Call duration: 32s", 32},
		{"Call duration: 5m", 300},
		{"no duration here", 0},
		{"12m3s", 723},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractDuration(tt.content), tt.content)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "32s", formatDuration(32))
	assert.Equal(t, "5m 32s", formatDuration(332))
	assert.Equal(t, "5m", formatDuration(300))
}

func TestAnalyzeCallMetrics(t *testing.T) {
	base := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC) // a Monday

	conv := &model.Conversation{ID: "c", Messages: []model.Message{
		message("alice", "Incoming call, call duration: 5m 30s", base),
		message("alice", "Missed call", base.Add(time.Hour)),
		message("Me", "Outgoing call, call duration: 2m 0s", base.Add(2*time.Hour)),
		message("bob", "Incoming call, call duration: 30s", base.Add(26*time.Hour)),
	}}

	report := testAnalyzer().Analyze(conv)
	require.True(t, report.IsCallLog)

	assert.Equal(t, 4, report.TotalCalls)
	assert.Equal(t, 3, report.CompletedCalls)
	assert.Equal(t, 1, report.MissedCalls)
	assert.Equal(t, 25.0, report.MissedCallPercentage)

	// 330 + 120 + 30 seconds = 8 minutes.
	assert.Equal(t, 8.0, report.TotalDurationMinutes)
	assert.InDelta(t, 2.7, report.AverageDurationMinutes, 0.01)

	require.NotNil(t, report.LongestCall)
	assert.Equal(t, 330, report.LongestCall.DurationSeconds)
	assert.Equal(t, "5m 30s", report.LongestCall.DurationFormatted)
	require.NotNil(t, report.ShortestCall)
	assert.Equal(t, 30, report.ShortestCall.DurationSeconds)

	assert.Equal(t, 1, report.OutgoingCalls)
	assert.Equal(t, 3, report.IncomingCalls)
	assert.Equal(t, 75.0, report.IncomingVsOutgoing.IncomingPercentage)

	assert.Equal(t, map[string]int{"Monday": 3, "Tuesday": 1}, report.CallsByDay)
	require.NotNil(t, report.BusiestDay)
	assert.Equal(t, "Monday", report.BusiestDay.Day)

	require.NotNil(t, report.PeakCallingTime)
	assert.Equal(t, 16, report.PeakCallingTime.Hour)
	assert.Equal(t, "16:00-17:00", report.PeakCallingTime.TimeRange)
	assert.Equal(t, 2, report.PeakCallingTime.CallCount)
}

func TestTopContacts(t *testing.T) {
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	msgs := []model.Message{
		message("alice", "call duration: 1m 0s", base),
		message("alice", "call duration: 3m 0s", base.Add(time.Minute)),
		message("alice", "missed call", base.Add(2*time.Minute)),
		message("bob", "call duration: 10m 0s", base.Add(3*time.Minute)),
	}

	report := testAnalyzer().Analyze(&model.Conversation{ID: "c", Messages: msgs})
	require.True(t, report.IsCallLog)
	require.Len(t, report.CallsByContact, 2)

	alice := report.CallsByContact[0]
	assert.Equal(t, "alice", alice.Contact)
	assert.Equal(t, 3, alice.CallCount)
	assert.Equal(t, 1, alice.MissedCount)
	assert.Equal(t, 4.0, alice.TotalDurationMinutes)
	assert.Equal(t, 2.0, alice.AverageDurationMinutes)
}

func TestDispatchExtraction(t *testing.T) {
	fields := extractStructuredFields(
		"Event: THEFT REPORT\nCase Number: 24-00123\nLocation: MAIN STREET AND FIFTH AVE\n" +
			"Caller Phone: 555-0101\nCall Source: E911\nDispatch: 14:02 Arrive: 14:10 Close: 14:45",
	)

	assert.Equal(t, "24-00123", fields.CaseNumber)
	assert.Equal(t, "MAIN STREET AND FIFTH AVE", fields.Location)
	assert.Equal(t, "555-0101", fields.CallerPhone)
	assert.Equal(t, "E911", fields.CallSource)
	assert.Equal(t, "14:02", fields.DispatchTime)
	assert.Equal(t, "14:10", fields.ArriveTime)
	assert.Equal(t, "14:45", fields.CloseTime)
	assert.Equal(t, 8, responseMinutes(fields))
}

func TestResponseMinutesRequiresBothTimes(t *testing.T) {
	assert.Zero(t, responseMinutes(DispatchCall{DispatchTime: "14:02"}))
	assert.Zero(t, responseMinutes(DispatchCall{ArriveTime: "14:10"}))
	// Arrival recorded before dispatch never counts as a response.
	assert.Negative(t, responseMinutes(DispatchCall{DispatchTime: "14:10", ArriveTime: "14:02"}))
}

func TestDispatchReportAggregation(t *testing.T) {
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	entry := "call source: E911\nDispatch: 10:00 Arrive: 10:05\nLocation: NORTH RIDGE PARKWAY 12"
	msgs := []model.Message{
		message("dispatcher", entry, base),
		message("dispatcher", entry, base.Add(time.Minute)),
		message("dispatcher", "call source: PHONE\nDispatch: 11:00 Arrive: 11:15", base.Add(2*time.Minute)),
	}

	report := testAnalyzer().Analyze(&model.Conversation{ID: "c", Messages: msgs})
	require.True(t, report.IsCallLog)
	require.NotNil(t, report.Dispatch)

	d := report.Dispatch
	assert.Equal(t, 3, d.TotalDispatchCalls)
	assert.Equal(t, map[string]int{"E911": 2, "PHONE": 1}, d.CallSources)
	assert.Equal(t, 5, d.FastestResponseMinutes)
	assert.Equal(t, 15, d.SlowestResponseMinutes)
	assert.InDelta(t, 8.3, d.AverageResponseTimeMinutes, 0.01)
	assert.LessOrEqual(t, len(d.SampleCalls), maxSampleDispatch)
}
