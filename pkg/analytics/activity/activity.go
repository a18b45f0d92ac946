package activity

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"chatlytics-server/pkg/errors"
	"chatlytics-server/pkg/model"
)

const (
	// Adjacent pairs with a gap at or above this are excluded from response
	// times and recorded as dormant periods.
	dormantThreshold = 24 * time.Hour

	// A gap above this starts a new session.
	sessionGap = 30 * time.Minute

	// Burst detection: a sliding window of burstWindow consecutive messages
	// qualifies when its implied rate reaches burstRate messages per hour.
	burstWindow = 10
	burstRate   = 10.0

	maxReportedPeriods = 10
)

// Bucket is one labeled count in a time-bucketed series.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// HourBucket is one hour-of-day count. All 24 hours are always present.
type HourBucket struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// ParticipantActivity summarizes one participant's messaging behavior.
type ParticipantActivity struct {
	MessageCount   int       `json:"message_count"`
	Percentage     float64   `json:"percentage"`
	AverageLength  float64   `json:"average_message_length"`
	FirstMessage   time.Time `json:"first_message"`
	LastMessage    time.Time `json:"last_message"`
	MostActiveHour int       `json:"most_active_hour"`
}

// Duration describes the overall conversation span.
type Duration struct {
	Days          int     `json:"days"`
	Hours         float64 `json:"hours"`
	HumanReadable string  `json:"human_readable"`
}

// ResponseTimes aggregates gaps between adjacent messages from different
// senders. Gaps of 24 hours or more are treated as a new thread, not a
// response, and excluded.
type ResponseTimes struct {
	AverageSeconds float64 `json:"average_seconds"`
	MedianSeconds  float64 `json:"median_seconds"`
	AverageMinutes float64 `json:"average_minutes"`
	MedianMinutes  float64 `json:"median_minutes"`
	SampleSize     int     `json:"sample_size"`
}

// Frequency describes inter-message gap statistics across all senders.
type Frequency struct {
	AverageIntervalSeconds float64        `json:"average_interval_seconds"`
	AverageIntervalMinutes float64        `json:"average_interval_minutes"`
	MedianIntervalSeconds  float64        `json:"median_interval_seconds"`
	MedianIntervalMinutes  float64        `json:"median_interval_minutes"`
	MessagesPerDayAverage  float64        `json:"messages_per_day_average"`
	Distribution           map[string]int `json:"frequency_distribution"`
	SampleSize             int            `json:"sample_size"`
}

// Velocity describes session structure. Sessions are split on idle gaps
// longer than 30 minutes.
type Velocity struct {
	TotalSessions      int     `json:"total_sessions"`
	AveragePerSession  float64 `json:"average_messages_per_session"`
	LongestSession     int     `json:"longest_session"`
	ShortestSession    int     `json:"shortest_session"`
	GapThresholdMinute float64 `json:"session_gap_threshold_minutes"`
}

// BurstPeriod is a short window of unusually high message rate.
type BurstPeriod struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	MessageCount    int       `json:"message_count"`
	MessagesPerHour float64   `json:"messages_per_hour"`
	DurationMinutes float64   `json:"duration_minutes"`
}

// DormantPeriod is a gap between adjacent messages of at least 24 hours.
type DormantPeriod struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DurationHours float64   `json:"duration_hours"`
	DurationDays  float64   `json:"duration_days"`
}

// Report is the full temporal/activity analysis output.
type Report struct {
	TotalMessages int            `json:"total_messages"`
	DateRange     DateRange      `json:"date_range"`
	PerDay        []Bucket       `json:"messages_per_day"`
	PerWeek       []Bucket       `json:"messages_per_week"`
	PerMonth      []Bucket       `json:"messages_per_month"`
	PerHour       []HourBucket   `json:"messages_per_hour"`
	PerWeekday    map[string]int `json:"messages_per_weekday"`

	ParticipantActivity   map[string]ParticipantActivity `json:"participant_activity"`
	MostActiveParticipant string                         `json:"most_active_participant"`

	BusiestDay   Bucket `json:"busiest_day"`
	BusiestWeek  Bucket `json:"busiest_week"`
	BusiestMonth Bucket `json:"busiest_month"`
	BusiestHour  int    `json:"busiest_hour"`

	ConversationDuration Duration        `json:"conversation_duration"`
	ResponseTimes        ResponseTimes   `json:"response_times"`
	Frequency            Frequency       `json:"frequency_analysis"`
	Velocity             Velocity        `json:"conversation_velocity"`
	BurstPeriods         []BurstPeriod   `json:"burst_periods"`
	DormantPeriods       []DormantPeriod `json:"dormant_periods"`
}

// DateRange bounds the conversation in time.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Analyzer computes temporal activity patterns. It is a pure function over
// message timestamps and holds no state beyond its logger.
type Analyzer struct {
	logger *logrus.Entry
}

// NewAnalyzer creates an activity analyzer.
func NewAnalyzer(logger *logrus.Logger) *Analyzer {
	return &Analyzer{
		logger: logger.WithField("component", "activity_analyzer"),
	}
}

// Analyze computes the activity report. It errors only on an empty
// conversation; every other edge case degrades to empty or zero sub-reports.
func (a *Analyzer) Analyze(conv *model.Conversation) (*Report, error) {
	if conv == nil || conv.Len() == 0 {
		return nil, errors.NewEmptyConversation(conversationID(conv))
	}

	msgs := conv.SortedMessages()
	start, end := msgs[0].Timestamp, msgs[len(msgs)-1].Timestamp

	report := &Report{
		TotalMessages: len(msgs),
		DateRange:     DateRange{Start: start, End: end},
		PerDay:        bucketBy(msgs, func(t time.Time) string { return t.Format("2006-01-02") }),
		PerWeek:       bucketBy(msgs, isoWeekLabel),
		PerMonth:      bucketBy(msgs, func(t time.Time) string { return t.Format("2006-01") }),
		PerHour:       hourlyBuckets(msgs),
		PerWeekday:    weekdayCounts(msgs),
	}

	report.ParticipantActivity, report.MostActiveParticipant = participantActivity(conv, msgs)

	report.BusiestDay = busiest(report.PerDay)
	report.BusiestWeek = busiest(report.PerWeek)
	report.BusiestMonth = busiest(report.PerMonth)
	report.BusiestHour = busiestHour(report.PerHour)

	report.ConversationDuration = duration(start, end)
	report.ResponseTimes = responseTimes(msgs)
	report.Frequency = frequency(msgs, start, end)
	report.Velocity = velocity(msgs)
	report.BurstPeriods = detectBursts(msgs)
	report.DormantPeriods = detectDormant(msgs)

	a.logger.WithFields(logrus.Fields{
		"messages": len(msgs),
		"sessions": report.Velocity.TotalSessions,
		"bursts":   len(report.BurstPeriods),
	}).Debug("Activity analysis complete")

	return report, nil
}

func conversationID(conv *model.Conversation) string {
	if conv == nil {
		return ""
	}
	return conv.ID
}

func bucketBy(msgs []model.Message, label func(time.Time) string) []Bucket {
	counts := make(map[string]int)
	for _, m := range msgs {
		counts[label(m.Timestamp)]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buckets := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		buckets = append(buckets, Bucket{Label: k, Count: counts[k]})
	}
	return buckets
}

func isoWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func hourlyBuckets(msgs []model.Message) []HourBucket {
	var counts [24]int
	for _, m := range msgs {
		counts[m.Timestamp.Hour()]++
	}
	buckets := make([]HourBucket, 24)
	for h := 0; h < 24; h++ {
		buckets[h] = HourBucket{Hour: h, Count: counts[h]}
	}
	return buckets
}

func weekdayCounts(msgs []model.Message) map[string]int {
	counts := make(map[string]int)
	for _, m := range msgs {
		counts[m.Timestamp.Weekday().String()]++
	}
	return counts
}

func participantActivity(conv *model.Conversation, msgs []model.Message) (map[string]ParticipantActivity, string) {
	stats := make(map[string]ParticipantActivity)
	total := len(msgs)

	for _, name := range conv.ParticipantNames() {
		var (
			count     int
			charTotal int
			first     time.Time
			last      time.Time
			hours     [24]int
		)
		for _, m := range msgs {
			if m.Sender != name {
				continue
			}
			count++
			charTotal += len(m.Content)
			if first.IsZero() || m.Timestamp.Before(first) {
				first = m.Timestamp
			}
			if m.Timestamp.After(last) {
				last = m.Timestamp
			}
			hours[m.Timestamp.Hour()]++
		}
		if count == 0 {
			continue
		}

		mostActiveHour, best := 0, -1
		for h, c := range hours {
			if c > best {
				mostActiveHour, best = h, c
			}
		}

		stats[name] = ParticipantActivity{
			MessageCount:   count,
			Percentage:     round2(float64(count) / float64(total) * 100),
			AverageLength:  round2(float64(charTotal) / float64(count)),
			FirstMessage:   first,
			LastMessage:    last,
			MostActiveHour: mostActiveHour,
		}
	}

	mostActive := ""
	bestCount := 0
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if stats[name].MessageCount > bestCount {
			mostActive, bestCount = name, stats[name].MessageCount
		}
	}
	return stats, mostActive
}

// busiest returns the bucket with the highest count. The buckets arrive in
// sorted key order, so ties break toward the first-encountered key.
func busiest(buckets []Bucket) Bucket {
	var best Bucket
	for _, b := range buckets {
		if b.Count > best.Count {
			best = b
		}
	}
	return best
}

func busiestHour(buckets []HourBucket) int {
	hour, best := 0, -1
	for _, b := range buckets {
		if b.Count > best {
			hour, best = b.Hour, b.Count
		}
	}
	return hour
}

func duration(start, end time.Time) Duration {
	delta := end.Sub(start)
	days := int(delta.Hours()) / 24
	hours := int(delta.Hours()) % 24
	minutes := int(delta.Minutes()) % 60

	var human string
	switch {
	case days > 0:
		human = fmt.Sprintf("%d days, %d hours", days, hours)
	case hours > 0:
		human = fmt.Sprintf("%d hours, %d minutes", hours, minutes)
	default:
		human = fmt.Sprintf("%d minutes", minutes)
	}

	return Duration{
		Days:          days,
		Hours:         delta.Hours(),
		HumanReadable: human,
	}
}

func responseTimes(msgs []model.Message) ResponseTimes {
	var gaps []float64
	for i := 1; i < len(msgs); i++ {
		prev, curr := msgs[i-1], msgs[i]
		if prev.Sender == curr.Sender {
			continue
		}
		gap := curr.Timestamp.Sub(prev.Timestamp)
		if gap >= dormantThreshold {
			continue
		}
		gaps = append(gaps, gap.Seconds())
	}
	if len(gaps) == 0 {
		return ResponseTimes{}
	}

	mean := stat.Mean(gaps, nil)
	median := upperMedian(gaps)

	return ResponseTimes{
		AverageSeconds: round2(mean),
		MedianSeconds:  round2(median),
		AverageMinutes: round2(mean / 60),
		MedianMinutes:  round2(median / 60),
		SampleSize:     len(gaps),
	}
}

func frequency(msgs []model.Message, start, end time.Time) Frequency {
	if len(msgs) < 2 {
		return Frequency{}
	}

	intervals := make([]float64, 0, len(msgs)-1)
	dist := map[string]int{
		"very_high": 0, // < 1 min
		"high":      0, // 1-10 min
		"medium":    0, // 10-60 min
		"low":       0, // 1-6 h
		"very_low":  0, // > 6 h
	}
	for i := 1; i < len(msgs); i++ {
		secs := msgs[i].Timestamp.Sub(msgs[i-1].Timestamp).Seconds()
		intervals = append(intervals, secs)
		switch {
		case secs < 60:
			dist["very_high"]++
		case secs < 600:
			dist["high"]++
		case secs < 3600:
			dist["medium"]++
		case secs < 21600:
			dist["low"]++
		default:
			dist["very_low"]++
		}
	}

	mean := stat.Mean(intervals, nil)
	median := upperMedian(intervals)

	// Inclusive day span: a conversation contained in one day divides by 1.
	totalDays := int(end.Sub(start).Hours()/24) + 1
	perDay := 0.0
	if totalDays > 0 {
		perDay = float64(len(msgs)) / float64(totalDays)
	}

	return Frequency{
		AverageIntervalSeconds: round2(mean),
		AverageIntervalMinutes: round2(mean / 60),
		MedianIntervalSeconds:  round2(median),
		MedianIntervalMinutes:  round2(median / 60),
		MessagesPerDayAverage:  round2(perDay),
		Distribution:           dist,
		SampleSize:             len(intervals),
	}
}

func velocity(msgs []model.Message) Velocity {
	if len(msgs) < 2 {
		return Velocity{}
	}

	sessionSizes := []int{1}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.Sub(msgs[i-1].Timestamp) <= sessionGap {
			sessionSizes[len(sessionSizes)-1]++
		} else {
			sessionSizes = append(sessionSizes, 1)
		}
	}

	total, longest := 0, 0
	min := sessionSizes[0]
	for _, n := range sessionSizes {
		total += n
		if n > longest {
			longest = n
		}
		if n < min {
			min = n
		}
	}

	return Velocity{
		TotalSessions:      len(sessionSizes),
		AveragePerSession:  round2(float64(total) / float64(len(sessionSizes))),
		LongestSession:     longest,
		ShortestSession:    min,
		GapThresholdMinute: sessionGap.Minutes(),
	}
}

func detectBursts(msgs []model.Message) []BurstPeriod {
	if len(msgs) < burstWindow {
		return nil
	}

	var candidates []BurstPeriod
	for i := 0; i+burstWindow <= len(msgs); i++ {
		windowStart := msgs[i].Timestamp
		windowEnd := msgs[i+burstWindow-1].Timestamp
		hours := windowEnd.Sub(windowStart).Hours()
		if hours <= 0 {
			continue
		}
		rate := float64(burstWindow) / hours
		if rate < burstRate {
			continue
		}
		candidates = append(candidates, BurstPeriod{
			Start:           windowStart,
			End:             windowEnd,
			MessageCount:    burstWindow,
			MessagesPerHour: round2(rate),
			DurationMinutes: round2(hours * 60),
		})
	}

	// Merge candidates whose start falls at or before the previous end.
	var merged []BurstPeriod
	for _, b := range candidates {
		if len(merged) > 0 && !b.Start.After(merged[len(merged)-1].End) {
			merged[len(merged)-1].End = b.End
			continue
		}
		merged = append(merged, b)
	}

	if len(merged) > maxReportedPeriods {
		merged = merged[:maxReportedPeriods]
	}
	return merged
}

func detectDormant(msgs []model.Message) []DormantPeriod {
	if len(msgs) < 2 {
		return nil
	}

	var periods []DormantPeriod
	for i := 1; i < len(msgs); i++ {
		gap := msgs[i].Timestamp.Sub(msgs[i-1].Timestamp)
		if gap < dormantThreshold {
			continue
		}
		periods = append(periods, DormantPeriod{
			Start:         msgs[i-1].Timestamp,
			End:           msgs[i].Timestamp,
			DurationHours: round2(gap.Hours()),
			DurationDays:  round2(gap.Hours() / 24),
		})
	}

	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].DurationHours > periods[j].DurationHours
	})
	if len(periods) > maxReportedPeriods {
		periods = periods[:maxReportedPeriods]
	}
	return periods
}

// upperMedian sorts a copy of values and returns the element at len/2,
// matching the rounding convention used across report consumers.
func upperMedian(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
