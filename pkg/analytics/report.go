package analytics

import (
	"fmt"
	"io"
	"strings"
)

const reportWidth = 60

// WriteTextReport renders a plain-text report of the analysis result.
func WriteTextReport(w io.Writer, r *Result) error {
	var b strings.Builder

	rule := strings.Repeat("=", reportWidth)
	line := strings.Repeat("-", reportWidth)

	b.WriteString(rule + "\n")
	b.WriteString("CONVERSATION ANALYTICS REPORT\n")
	b.WriteString(rule + "\n\n")

	info := r.ConversationInfo
	fmt.Fprintf(&b, "Title: %s\n", info.Title)
	fmt.Fprintf(&b, "Platform: %s\n", info.Platform)
	fmt.Fprintf(&b, "Messages: %d\n", info.TotalMessages)
	fmt.Fprintf(&b, "Participants: %s\n\n", strings.Join(info.Participants, ", "))

	if r.CallLog != nil && r.CallLog.IsCallLog {
		writeCallLogSection(&b, r, line)
	}

	if r.Sentiment != nil {
		b.WriteString("SENTIMENT ANALYSIS\n" + line + "\n")
		fmt.Fprintf(&b, "Overall Sentiment: %s\n", strings.ToUpper(r.Sentiment.OverallSentiment))
		fmt.Fprintf(&b, "Sentiment Score: %.2f (-1 to 1)\n", r.Sentiment.SentimentScore)
		fmt.Fprintf(&b, "Distribution: positive=%d neutral=%d negative=%d\n",
			r.Sentiment.Distribution["positive"],
			r.Sentiment.Distribution["neutral"],
			r.Sentiment.Distribution["negative"])
		fmt.Fprintf(&b, "Analysis Method: %s\n\n", strings.ToUpper(r.Sentiment.Method))
	}

	if r.Topics != nil {
		b.WriteString("TOPIC ANALYSIS\n" + line + "\n")
		b.WriteString("Main Topics:\n")
		for i, topic := range r.Topics.Topics {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "  %d. %s\n", i+1, topic)
		}
		b.WriteString("\nTop Keywords:\n")
		for i, kw := range r.Topics.Keywords {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&b, "  - %s (%d times)\n", kw.Word, kw.Count)
		}
		b.WriteString("\n")
	}

	if r.Activity != nil {
		b.WriteString("ACTIVITY ANALYSIS\n" + line + "\n")
		if name := r.Activity.MostActiveParticipant; name != "" {
			count := r.Activity.ParticipantActivity[name].MessageCount
			fmt.Fprintf(&b, "Most Active: %s (%d messages)\n", name, count)
		}
		if r.Activity.BusiestDay.Label != "" {
			fmt.Fprintf(&b, "Busiest Day: %s (%d messages)\n",
				r.Activity.BusiestDay.Label, r.Activity.BusiestDay.Count)
		}
		fmt.Fprintf(&b, "Busiest Hour: %d:00\n\n", r.Activity.BusiestHour)
	}

	if r.WordFrequency != nil {
		b.WriteString("WORD STATISTICS\n" + line + "\n")
		fmt.Fprintf(&b, "Total Words: %d\n", r.WordFrequency.TotalWords)
		fmt.Fprintf(&b, "Unique Words: %d\n", r.WordFrequency.UniqueWords)
		fmt.Fprintf(&b, "Vocabulary Diversity: %.1f%%\n\n", r.WordFrequency.VocabularyDiversity*100)
	}

	if len(r.Errors) > 0 {
		b.WriteString("ANALYZER ERRORS\n" + line + "\n")
		for name, msg := range r.Errors {
			fmt.Fprintf(&b, "  %s: %s\n", name, msg)
		}
		b.WriteString("\n")
	}

	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Analysis completed in %.2fs\n", r.ProcessingTime)
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeCallLogSection(b *strings.Builder, r *Result, line string) {
	c := r.CallLog
	b.WriteString("CALL LOG DETECTED\n" + line + "\n")
	fmt.Fprintf(b, "Total Calls: %d\n", c.TotalCalls)
	fmt.Fprintf(b, "Completed Calls: %d\n", c.CompletedCalls)
	fmt.Fprintf(b, "Missed Calls: %d (%.1f%%)\n", c.MissedCalls, c.MissedCallPercentage)
	fmt.Fprintf(b, "Total Talk Time: %.1f minutes\n", c.TotalDurationMinutes)
	fmt.Fprintf(b, "Average Call Duration: %.1f minutes\n", c.AverageDurationMinutes)

	d := c.IncomingVsOutgoing
	fmt.Fprintf(b, "Incoming: %d (%.1f%%)\n", d.Incoming, d.IncomingPercentage)
	fmt.Fprintf(b, "Outgoing: %d (%.1f%%)\n", d.Outgoing, d.OutgoingPercentage)

	if len(c.CallsByContact) > 0 {
		b.WriteString("\nTop 3 Contacts:\n")
		for i, contact := range c.CallsByContact {
			if i >= 3 {
				break
			}
			fmt.Fprintf(b, "  %d. %s: %d calls\n", i+1, contact.Contact, contact.CallCount)
		}
	}

	if c.PeakCallingTime != nil {
		fmt.Fprintf(b, "Peak Time: %s (%d calls)\n",
			c.PeakCallingTime.TimeRange, c.PeakCallingTime.CallCount)
	}
	b.WriteString("\n")
}
