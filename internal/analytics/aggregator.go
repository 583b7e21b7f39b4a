// Package analytics folds stored sessions into summary, daily and hourly eco statistics.
package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/greenstudio/greenstudio/internal/model"
)

const dayLayout = "2006-01-02"

// Aggregate computes summary statistics from the messages that fall within
// [since, until). A zero bound is open.
func Aggregate(sessions []model.ChatSession, since, until time.Time) model.SummaryStats {
	var stats model.SummaryStats
	activeDays := make(map[string]struct{})

	for _, s := range sessions {
		msgs := messagesInRange(s.Messages, since, until)
		if len(msgs) == 0 {
			continue
		}
		stats.Sessions++

		for _, m := range msgs {
			switch m.Role {
			case model.SpeakerUser:
				stats.Prompts++
				activeDays[m.Timestamp.Local().Format(dayLayout)] = struct{}{}
			case model.SpeakerAssistant:
				stats.Replies++
				if m.Metrics != nil {
					stats.Totals = stats.Totals.Add(*m.Metrics)
				}
			case model.SpeakerSystem:
				stats.Failures++
			}
		}
	}

	stats.ActiveDays = len(activeDays)
	if stats.Totals.EstimatedBaselineTokens > 0 {
		stats.Reduction = 1 - float64(stats.Totals.TokensUsed)/float64(stats.Totals.EstimatedBaselineTokens)
	}

	if stats.ActiveDays > 0 {
		days := float64(stats.ActiveDays)
		stats.PromptsPerDay = float64(stats.Prompts) / days
		stats.TokensSavedPerDay = int64(float64(stats.Totals.TokensSaved) / days)
		stats.CarbonPerDay = stats.Totals.CarbonSavedGrams / days
	}

	return stats
}

// AggregateDays computes per-day statistics, most recent first. When both
// bounds are set every day in the range is present so gaps read as zeros.
func AggregateDays(sessions []model.ChatSession, since, until time.Time) []model.DailyStats {
	dayMap := make(map[string]*model.DailyStats)

	bucket := func(t time.Time) *model.DailyStats {
		key := t.Local().Format(dayLayout)
		ds, ok := dayMap[key]
		if !ok {
			d, _ := time.ParseInLocation(dayLayout, key, time.Local)
			ds = &model.DailyStats{Date: d}
			dayMap[key] = ds
		}
		return ds
	}

	for _, s := range sessions {
		for _, m := range messagesInRange(s.Messages, since, until) {
			ds := bucket(m.Timestamp)
			switch m.Role {
			case model.SpeakerUser:
				ds.Prompts++
			case model.SpeakerAssistant:
				ds.Replies++
				if m.Metrics != nil {
					ds.Totals = ds.Totals.Add(*m.Metrics)
				}
			case model.SpeakerSystem:
				ds.Failures++
			}
		}
	}

	if !since.IsZero() && !until.IsZero() {
		day := startOfDay(since)
		end := until.Add(-time.Nanosecond)
		for !day.After(end) {
			bucket(day)
			day = day.AddDate(0, 0, 1)
		}
	}

	days := make([]model.DailyStats, 0, len(dayMap))
	for _, ds := range dayMap {
		days = append(days, *ds)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.After(days[j].Date)
	})
	return days
}

// AggregateHourly computes prompt counts by local hour of day. Savings are
// attributed to the hour of the reply that earned them.
func AggregateHourly(sessions []model.ChatSession, since, until time.Time) []model.HourlyStats {
	hours := make([]model.HourlyStats, 24)
	for i := range hours {
		hours[i].Hour = i
	}

	for _, s := range sessions {
		for _, m := range messagesInRange(s.Messages, since, until) {
			h := m.Timestamp.Local().Hour()
			switch {
			case m.Role == model.SpeakerUser:
				hours[h].Prompts++
			case m.Role == model.SpeakerAssistant && m.Metrics != nil:
				hours[h].TokensSaved += m.Metrics.TokensSaved
			}
		}
	}
	return hours
}

// FilterByTitle returns sessions whose display title contains substr, ignoring case.
func FilterByTitle(sessions []model.ChatSession, substr string) []model.ChatSession {
	if substr == "" {
		return sessions
	}
	var result []model.ChatSession
	for _, s := range sessions {
		if containsIgnoreCase(s.DisplayTitle(), substr) {
			result = append(result, s)
		}
	}
	return result
}

// Since returns the start of the local day n-1 days before now, so that
// n=1 means today. Zero or negative n yields the zero time (all history).
func Since(now time.Time, n int) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	return startOfDay(now).AddDate(0, 0, -(n - 1))
}

// Series returns f applied to days in chronological order, for sparklines.
func Series(days []model.DailyStats, f func(model.DailyStats) float64) []float64 {
	out := make([]float64, len(days))
	for i, d := range days {
		out[len(days)-1-i] = f(d)
	}
	return out
}

func messagesInRange(msgs []model.Message, since, until time.Time) []model.Message {
	if since.IsZero() && until.IsZero() {
		return msgs
	}
	var result []model.Message
	for _, m := range msgs {
		if m.Timestamp.IsZero() {
			continue
		}
		if !since.IsZero() && m.Timestamp.Before(since) {
			continue
		}
		if !until.IsZero() && !m.Timestamp.Before(until) {
			continue
		}
		result = append(result, m)
	}
	return result
}

func startOfDay(t time.Time) time.Time {
	l := t.Local()
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.Local)
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
