// Package calllog detects call-log style conversations and extracts
// call-specific metrics: durations, missed calls, contact frequency, and
// structured dispatch fields.
package calllog

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"chatlytics-server/pkg/model"
)

const (
	classifySampleSize = 10
	classifyThreshold  = 0.3

	maxContacts       = 10
	maxLocations      = 10
	maxSampleDispatch = 5
)

// phoneIndicators and dispatchIndicators classify a conversation as a call
// log when enough sampled messages contain any of them.
var phoneIndicators = []string{
	"call duration", "missed call", "📞", "❌ missed",
	"incoming call", "outgoing call", "call from", "call to",
}

var dispatchIndicators = []string{
	"dispatch", "arrive", "terminal", "event", "case number",
	"call source", "loi", "sector", "caller phone", "remarks",
}

var (
	durationMinSec = regexp.MustCompile(`(\d+)m\s*(\d+)s`)
	durationSec    = regexp.MustCompile(`(\d+)s`)
	durationMin    = regexp.MustCompile(`(\d+)m`)

	casePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)case\s*(?:number|#)?\s*:?\s*(\w+[-/]?\w*)`),
		regexp.MustCompile(`(?i)event\s*(?:number|#)?\s*:?\s*(\w+[-/]?\w*)`),
		regexp.MustCompile(`(?i)incident\s*(?:number|#)?\s*:?\s*(\w+[-/]?\w*)`),
	}
	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)location\s*:?\s*([A-Z][^\n]{10,80})`),
		regexp.MustCompile(`(?i)address\s*:?\s*([A-Z][^\n]{10,80})`),
		regexp.MustCompile(`(?i)sector\s*:?\s*([A-Z][^\n]{10,60})`),
		regexp.MustCompile(`(?i)(?:N|S|E|W)\s+SECTOR\s+([A-Z\s]+)`),
	}
	phonePattern  = regexp.MustCompile(`(?i)(?:caller phone|phone number)\s*:?\s*([\d-]+)`)
	sourcePattern = regexp.MustCompile(`(?i)call source\s*:?\s*([\w-]+)`)

	dispatchTimePattern = regexp.MustCompile(`(?i)dispatch\s*(?:time)?\s*:?\s*(\d{1,2}:\d{2})`)
	arriveTimePattern   = regexp.MustCompile(`(?i)arrive\s*(?:time)?\s*:?\s*(\d{1,2}:\d{2})`)
	closeTimePattern    = regexp.MustCompile(`(?i)close\s*(?:time)?\s*:?\s*(\d{1,2}:\d{2})`)
	enrouteTimePattern  = regexp.MustCompile(`(?i)en\s*route\s*:?\s*(\d{1,2}:\d{2})`)

	// Event types and LOI are recorded in uppercase in the feeds this was
	// built against, so the event pattern stays case sensitive.
	eventPattern = regexp.MustCompile(`(?:event|terminal)\s*:?\s*([A-Z\s]{3,30})`)
	loiPattern   = regexp.MustCompile(`(?i)LOI\s*:?\s*([A-Z\s]{3,40})`)
)

// CallRecord is one completed call with a known duration.
type CallRecord struct {
	Sender            string    `json:"sender"`
	DurationSeconds   int       `json:"duration_seconds"`
	DurationFormatted string    `json:"duration_formatted"`
	Timestamp         time.Time `json:"timestamp"`
}

// ContactStats aggregates calls for one contact.
type ContactStats struct {
	Contact                string  `json:"contact"`
	CallCount              int     `json:"call_count"`
	TotalDurationMinutes   float64 `json:"total_duration_minutes"`
	MissedCount            int     `json:"missed_count"`
	AverageDurationMinutes float64 `json:"average_duration_minutes"`
}

// PeakTime is the busiest calling hour.
type PeakTime struct {
	Hour      int    `json:"hour"`
	TimeRange string `json:"time_range"`
	CallCount int    `json:"call_count"`
}

// DayCount is the busiest day.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Direction splits calls into incoming and outgoing.
type Direction struct {
	Incoming           int     `json:"incoming"`
	Outgoing           int     `json:"outgoing"`
	IncomingPercentage float64 `json:"incoming_percentage"`
	OutgoingPercentage float64 `json:"outgoing_percentage"`
}

// DispatchCall carries structured fields pulled from one dispatch entry.
type DispatchCall struct {
	Timestamp    time.Time `json:"timestamp"`
	Sender       string    `json:"sender"`
	CaseNumber   string    `json:"case_number,omitempty"`
	Location     string    `json:"location,omitempty"`
	CallerPhone  string    `json:"caller_phone,omitempty"`
	CallSource   string    `json:"call_source,omitempty"`
	DispatchTime string    `json:"dispatch_time,omitempty"`
	EnrouteTime  string    `json:"enroute_time,omitempty"`
	ArriveTime   string    `json:"arrive_time,omitempty"`
	CloseTime    string    `json:"close_time,omitempty"`
	EventType    string    `json:"event_type,omitempty"`
	NatureOfCall string    `json:"nature_of_call,omitempty"`
}

func (d DispatchCall) hasFields() bool {
	return d.CaseNumber != "" || d.Location != "" || d.CallerPhone != "" ||
		d.CallSource != "" || d.DispatchTime != "" || d.EnrouteTime != "" ||
		d.ArriveTime != "" || d.CloseTime != "" || d.EventType != "" ||
		d.NatureOfCall != ""
}

// DispatchReport aggregates the structured dispatch entries.
type DispatchReport struct {
	TotalDispatchCalls         int            `json:"total_dispatch_calls"`
	Locations                  map[string]int `json:"locations"`
	CallSources                map[string]int `json:"call_sources"`
	EventTypes                 map[string]int `json:"event_types"`
	AverageResponseTimeMinutes float64        `json:"average_response_time_minutes"`
	FastestResponseMinutes     int            `json:"fastest_response_minutes"`
	SlowestResponseMinutes     int            `json:"slowest_response_minutes"`
	SampleCalls                []DispatchCall `json:"sample_calls"`
}

// Report is the call log analysis output. When IsCallLog is false only
// Message is set.
type Report struct {
	IsCallLog              bool            `json:"is_call_log"`
	Message                string          `json:"message,omitempty"`
	TotalCalls             int             `json:"total_calls"`
	CompletedCalls         int             `json:"completed_calls"`
	MissedCalls            int             `json:"missed_calls"`
	MissedCallPercentage   float64         `json:"missed_call_percentage"`
	TotalDurationMinutes   float64         `json:"total_duration_minutes"`
	AverageDurationMinutes float64         `json:"average_duration_minutes"`
	LongestCall            *CallRecord     `json:"longest_call"`
	ShortestCall           *CallRecord     `json:"shortest_call"`
	CallsByContact         []ContactStats  `json:"calls_by_contact"`
	CallsByHour            map[int]int     `json:"calls_by_hour"`
	CallsByDay             map[string]int  `json:"calls_by_day"`
	BusiestDay             *DayCount       `json:"busiest_day"`
	IncomingCalls          int             `json:"incoming_calls"`
	OutgoingCalls          int             `json:"outgoing_calls"`
	IncomingVsOutgoing     Direction       `json:"incoming_vs_outgoing"`
	PeakCallingTime        *PeakTime       `json:"peak_calling_time"`
	Dispatch               *DispatchReport `json:"dispatch_analytics,omitempty"`
}

// Analyzer classifies and analyzes call logs.
type Analyzer struct {
	logger *logrus.Entry
}

type contactData struct {
	count    int
	duration int
	missed   int
}

// NewAnalyzer builds a call log analyzer.
func NewAnalyzer(logger *logrus.Logger) *Analyzer {
	return &Analyzer{logger: logger.WithField("component", "calllog")}
}

// IsCallLog samples the first messages and reports whether enough of them
// carry call or dispatch indicators.
func (a *Analyzer) IsCallLog(conv *model.Conversation) bool {
	if conv == nil || conv.Len() == 0 {
		return false
	}

	sampleSize := classifySampleSize
	if conv.Len() < sampleSize {
		sampleSize = conv.Len()
	}

	hits := 0
	for _, m := range conv.Messages[:sampleSize] {
		content := strings.ToLower(m.Content)
		if containsAny(content, phoneIndicators) || containsAny(content, dispatchIndicators) {
			hits++
		}
	}
	return float64(hits)/float64(sampleSize) >= classifyThreshold
}

// Analyze classifies the conversation and, for call logs, extracts the full
// metric set. A non-call-log conversation is a result, not an error.
func (a *Analyzer) Analyze(conv *model.Conversation) *Report {
	if !a.IsCallLog(conv) {
		return &Report{
			IsCallLog: false,
			Message:   "This appears to be regular messages, not a call log",
		}
	}

	contacts := make(map[string]*contactData)
	callsByHour := make(map[int]int)
	callsByDay := make(map[string]int)
	var withDuration []CallRecord
	var dispatchCalls []DispatchCall
	locations := make(map[string]int)
	callSources := make(map[string]int)
	eventTypes := make(map[string]int)
	var responseTimes []int

	report := &Report{IsCallLog: true}
	totalDurationSeconds := 0

	for _, m := range conv.Messages {
		if fields := extractStructuredFields(m.Content); fields.hasFields() {
			fields.Timestamp = m.Timestamp
			fields.Sender = m.Sender
			dispatchCalls = append(dispatchCalls, fields)

			if fields.Location != "" {
				locations[fields.Location]++
			}
			if fields.CallSource != "" {
				callSources[fields.CallSource]++
			}
			if fields.EventType != "" {
				eventTypes[fields.EventType]++
			}
			if rt := responseMinutes(fields); rt > 0 {
				responseTimes = append(responseTimes, rt)
			}
		}

		lower := strings.ToLower(m.Content)
		if !strings.Contains(lower, "call") && !strings.Contains(m.Content, "📞") &&
			!strings.Contains(m.Content, "❌") {
			continue
		}

		report.TotalCalls++
		if contacts[m.Sender] == nil {
			contacts[m.Sender] = &contactData{}
		}

		duration := extractDuration(m.Content)
		if strings.Contains(lower, "missed") || strings.Contains(m.Content, "❌") {
			report.MissedCalls++
			contacts[m.Sender].missed++
		} else {
			report.CompletedCalls++
			if duration > 0 {
				totalDurationSeconds += duration
				withDuration = append(withDuration, CallRecord{
					Sender:            m.Sender,
					DurationSeconds:   duration,
					DurationFormatted: formatDuration(duration),
					Timestamp:         m.Timestamp,
				})
				contacts[m.Sender].duration += duration
			}
		}

		contacts[m.Sender].count++

		if !m.Timestamp.IsZero() {
			callsByHour[m.Timestamp.Hour()]++
			callsByDay[m.Timestamp.Weekday().String()]++
		}

		if m.Sender == "Me" {
			report.OutgoingCalls++
		} else {
			report.IncomingCalls++
		}
	}

	if report.TotalCalls > 0 {
		report.MissedCallPercentage = round1(float64(report.MissedCalls) / float64(report.TotalCalls) * 100)
		report.IncomingVsOutgoing = Direction{
			Incoming:           report.IncomingCalls,
			Outgoing:           report.OutgoingCalls,
			IncomingPercentage: round1(float64(report.IncomingCalls) / float64(report.TotalCalls) * 100),
			OutgoingPercentage: round1(float64(report.OutgoingCalls) / float64(report.TotalCalls) * 100),
		}
	}

	report.TotalDurationMinutes = round1(float64(totalDurationSeconds) / 60)
	if report.CompletedCalls > 0 {
		avg := float64(totalDurationSeconds) / float64(report.CompletedCalls)
		report.AverageDurationMinutes = round1(avg / 60)
	}

	for i := range withDuration {
		rec := withDuration[i]
		if report.LongestCall == nil || rec.DurationSeconds > report.LongestCall.DurationSeconds {
			r := rec
			report.LongestCall = &r
		}
		if report.ShortestCall == nil || rec.DurationSeconds < report.ShortestCall.DurationSeconds {
			r := rec
			report.ShortestCall = &r
		}
	}

	report.CallsByContact = topContacts(contacts)
	report.CallsByHour = callsByHour
	report.CallsByDay = callsByDay
	report.BusiestDay = busiestDay(callsByDay)
	report.PeakCallingTime = peakHour(callsByHour)

	if len(dispatchCalls) > 0 {
		report.Dispatch = dispatchReport(dispatchCalls, locations, callSources, eventTypes, responseTimes)
	}

	a.logger.WithFields(logrus.Fields{
		"total_calls":    report.TotalCalls,
		"missed_calls":   report.MissedCalls,
		"dispatch_calls": len(dispatchCalls),
	}).Debug("Call log analysis complete")

	return report
}

func topContacts(contacts map[string]*contactData) []ContactStats {
	stats := make([]ContactStats, 0, len(contacts))
	for contact, data := range contacts {
		s := ContactStats{
			Contact:              contact,
			CallCount:            data.count,
			TotalDurationMinutes: round1(float64(data.duration) / 60),
			MissedCount:          data.missed,
		}
		if completed := data.count - data.missed; completed > 0 {
			s.AverageDurationMinutes = round1(float64(data.duration) / 60 / float64(completed))
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].CallCount != stats[j].CallCount {
			return stats[i].CallCount > stats[j].CallCount
		}
		return stats[i].Contact < stats[j].Contact
	})
	if len(stats) > maxContacts {
		stats = stats[:maxContacts]
	}
	return stats
}

func busiestDay(callsByDay map[string]int) *DayCount {
	if len(callsByDay) == 0 {
		return nil
	}
	days := make([]string, 0, len(callsByDay))
	for d := range callsByDay {
		days = append(days, d)
	}
	sort.Strings(days)

	best := &DayCount{}
	for _, d := range days {
		if callsByDay[d] > best.Count {
			best = &DayCount{Day: d, Count: callsByDay[d]}
		}
	}
	return best
}

func peakHour(callsByHour map[int]int) *PeakTime {
	if len(callsByHour) == 0 {
		return nil
	}
	bestHour, bestCount := -1, -1
	for h := 0; h < 24; h++ {
		if c, ok := callsByHour[h]; ok && c > bestCount {
			bestHour, bestCount = h, c
		}
	}
	return &PeakTime{
		Hour:      bestHour,
		TimeRange: fmt.Sprintf("%02d:00-%02d:00", bestHour, bestHour+1),
		CallCount: bestCount,
	}
}

func dispatchReport(calls []DispatchCall, locations, sources, events map[string]int, responseTimes []int) *DispatchReport {
	r := &DispatchReport{
		TotalDispatchCalls: len(calls),
		Locations:          topN(locations, maxLocations),
		CallSources:        sources,
		EventTypes:         events,
	}
	if len(responseTimes) > 0 {
		sum, fastest, slowest := 0, responseTimes[0], responseTimes[0]
		for _, t := range responseTimes {
			sum += t
			if t < fastest {
				fastest = t
			}
			if t > slowest {
				slowest = t
			}
		}
		r.AverageResponseTimeMinutes = round1(float64(sum) / float64(len(responseTimes)))
		r.FastestResponseMinutes = fastest
		r.SlowestResponseMinutes = slowest
	}

	sample := calls
	if len(sample) > maxSampleDispatch {
		sample = sample[:maxSampleDispatch]
	}
	r.SampleCalls = sample
	return r
}

func topN(m map[string]int, n int) map[string]int {
	type kv struct {
		k string
		v int
	}
	pairs := make([]kv, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, kv{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].v != pairs[j].v {
			return pairs[i].v > pairs[j].v
		}
		return pairs[i].k < pairs[j].k
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	out := make(map[string]int, len(pairs))
	for _, p := range pairs {
		out[p.k] = p.v
	}
	return out
}

// extractDuration pulls a call duration in seconds, trying the combined
// minutes-and-seconds form before the single-unit forms.
func extractDuration(content string) int {
	if m := durationMinSec.FindStringSubmatch(content); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.Atoi(m[2])
		return minutes*60 + seconds
	}
	if m := durationSec.FindStringSubmatch(content); m != nil {
		seconds, _ := strconv.Atoi(m[1])
		return seconds
	}
	if m := durationMin.FindStringSubmatch(content); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		return minutes * 60
	}
	return 0
}

func formatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes := seconds / 60
	remaining := seconds % 60
	if remaining > 0 {
		return fmt.Sprintf("%dm %ds", minutes, remaining)
	}
	return fmt.Sprintf("%dm", minutes)
}

func extractStructuredFields(content string) DispatchCall {
	var fields DispatchCall

	for _, p := range casePatterns {
		if m := p.FindStringSubmatch(content); m != nil {
			fields.CaseNumber = m[1]
			break
		}
	}
	for _, p := range locationPatterns {
		if m := p.FindStringSubmatch(content); m != nil {
			fields.Location = strings.TrimSpace(m[1])
			break
		}
	}
	if m := phonePattern.FindStringSubmatch(content); m != nil {
		fields.CallerPhone = m[1]
	}
	if m := sourcePattern.FindStringSubmatch(content); m != nil {
		fields.CallSource = m[1]
	}
	if m := dispatchTimePattern.FindStringSubmatch(content); m != nil {
		fields.DispatchTime = m[1]
	}
	if m := arriveTimePattern.FindStringSubmatch(content); m != nil {
		fields.ArriveTime = m[1]
	}
	if m := closeTimePattern.FindStringSubmatch(content); m != nil {
		fields.CloseTime = m[1]
	}
	if m := enrouteTimePattern.FindStringSubmatch(content); m != nil {
		fields.EnrouteTime = m[1]
	}
	if m := eventPattern.FindStringSubmatch(content); m != nil {
		fields.EventType = strings.TrimSpace(m[1])
	}
	if m := loiPattern.FindStringSubmatch(content); m != nil {
		fields.NatureOfCall = strings.TrimSpace(m[1])
	}
	return fields
}

// responseMinutes computes arrive minus dispatch in whole minutes when both
// parse as clock times, else 0.
func responseMinutes(fields DispatchCall) int {
	if fields.DispatchTime == "" || fields.ArriveTime == "" {
		return 0
	}
	dispatch, err := time.Parse("15:04", fields.DispatchTime)
	if err != nil {
		return 0
	}
	arrive, err := time.Parse("15:04", fields.ArriveTime)
	if err != nil {
		return 0
	}
	return int(arrive.Sub(dispatch).Minutes())
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
