package analytics

// Summary is the small cross-analyzer digest attached to every result.
// Sections are omitted when their analyzer did not run or failed.
type Summary struct {
	CallLog   *CallLogSummary   `json:"call_log,omitempty"`
	Sentiment *SentimentSummary `json:"sentiment,omitempty"`
	Topics    *TopicsSummary    `json:"topics,omitempty"`
	Activity  *ActivitySummary  `json:"activity,omitempty"`
	WordStats *WordStatsSummary `json:"word_stats,omitempty"`
}

// CallLogSummary digests a detected call log.
type CallLogSummary struct {
	IsCallLog            bool    `json:"is_call_log"`
	TotalCalls           int     `json:"total_calls"`
	MissedCalls          int     `json:"missed_calls"`
	TotalDurationMinutes float64 `json:"total_duration_minutes"`
	TopContact           string  `json:"top_contact"`
}

// SentimentSummary digests the sentiment report.
type SentimentSummary struct {
	Overall      string         `json:"overall"`
	Score        float64        `json:"score"`
	Distribution map[string]int `json:"distribution"`
}

// TopicsSummary digests the topic report.
type TopicsSummary struct {
	MainTopics  []string `json:"main_topics"`
	TopKeywords []string `json:"top_keywords"`
}

// ActivitySummary digests the activity report.
type ActivitySummary struct {
	TotalMessages         int    `json:"total_messages"`
	BusiestDay            string `json:"busiest_day"`
	BusiestDayCount       int    `json:"busiest_day_count"`
	MostActiveParticipant string `json:"most_active_participant"`
}

// WordStatsSummary digests the word frequency report.
type WordStatsSummary struct {
	TotalWords          int     `json:"total_words"`
	UniqueWords         int     `json:"unique_words"`
	VocabularyDiversity float64 `json:"vocabulary_diversity"`
}

const (
	summaryTopics   = 5
	summaryKeywords = 10
)

func buildSummary(r *Result) Summary {
	var s Summary

	if r.CallLog != nil && r.CallLog.IsCallLog {
		cs := &CallLogSummary{
			IsCallLog:            true,
			TotalCalls:           r.CallLog.TotalCalls,
			MissedCalls:          r.CallLog.MissedCalls,
			TotalDurationMinutes: r.CallLog.TotalDurationMinutes,
			TopContact:           "N/A",
		}
		if len(r.CallLog.CallsByContact) > 0 {
			cs.TopContact = r.CallLog.CallsByContact[0].Contact
		}
		s.CallLog = cs
	}

	if r.Sentiment != nil {
		s.Sentiment = &SentimentSummary{
			Overall:      r.Sentiment.OverallSentiment,
			Score:        r.Sentiment.SentimentScore,
			Distribution: r.Sentiment.Distribution,
		}
	}

	if r.Topics != nil {
		ts := &TopicsSummary{}
		for i, topic := range r.Topics.Topics {
			if i >= summaryTopics {
				break
			}
			ts.MainTopics = append(ts.MainTopics, topic)
		}
		for i, kw := range r.Topics.Keywords {
			if i >= summaryKeywords {
				break
			}
			ts.TopKeywords = append(ts.TopKeywords, kw.Word)
		}
		s.Topics = ts
	}

	if r.Activity != nil {
		s.Activity = &ActivitySummary{
			TotalMessages:         r.Activity.TotalMessages,
			BusiestDay:            r.Activity.BusiestDay.Label,
			BusiestDayCount:       r.Activity.BusiestDay.Count,
			MostActiveParticipant: r.Activity.MostActiveParticipant,
		}
	}

	if r.WordFrequency != nil {
		s.WordStats = &WordStatsSummary{
			TotalWords:          r.WordFrequency.TotalWords,
			UniqueWords:         r.WordFrequency.UniqueWords,
			VocabularyDiversity: r.WordFrequency.VocabularyDiversity,
		}
	}

	return s
}
