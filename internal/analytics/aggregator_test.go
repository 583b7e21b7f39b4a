package analytics

import (
	"testing"
	"time"

	"github.com/greenstudio/greenstudio/internal/eco"
	"github.com/greenstudio/greenstudio/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day, hour int) time.Time {
	return time.Date(2026, time.March, day, hour, 15, 0, 0, time.Local)
}

func exchange(t time.Time, reply string) []model.Message {
	m := eco.Estimate(reply)
	return []model.Message{
		{Role: model.SpeakerUser, Text: "prompt", Timestamp: t},
		{Role: model.SpeakerAssistant, Text: reply, Timestamp: t.Add(time.Minute), Metrics: &m},
	}
}

func fixture() []model.ChatSession {
	a := model.ChatSession{ID: "a", Title: "Landing page"}
	a.Messages = append(a.Messages, exchange(at(1, 9), "abcdefgh")...)
	a.Messages = append(a.Messages, exchange(at(3, 14), "abcd")...)

	b := model.ChatSession{ID: "b", Title: "Unit tests"}
	b.Messages = append(b.Messages, exchange(at(3, 9), "abcdefghijkl")...)
	b.Messages = append(b.Messages, model.Message{Role: model.SpeakerSystem, Text: "failed", Timestamp: at(3, 10)})

	empty := model.ChatSession{ID: "c"}
	return []model.ChatSession{a, b, empty}
}

func TestAggregate_AllTime(t *testing.T) {
	stats := Aggregate(fixture(), time.Time{}, time.Time{})

	assert.Equal(t, 2, stats.Sessions)
	assert.Equal(t, 3, stats.Prompts)
	assert.Equal(t, 3, stats.Replies)
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 2, stats.ActiveDays)

	// 2+1+3 tokens used; baselines 6+3+10.
	assert.Equal(t, int64(6), stats.Totals.TokensUsed)
	assert.Equal(t, int64(19), stats.Totals.EstimatedBaselineTokens)
	assert.Equal(t, int64(13), stats.Totals.TokensSaved)
	assert.InDelta(t, 1-6.0/19.0, stats.Reduction, 1e-9)
	assert.InDelta(t, 1.5, stats.PromptsPerDay, 1e-9)
	assert.Equal(t, int64(6), stats.TokensSavedPerDay)
}

func TestAggregate_Window(t *testing.T) {
	stats := Aggregate(fixture(), at(2, 0), at(4, 0))

	assert.Equal(t, 2, stats.Sessions)
	assert.Equal(t, 2, stats.Prompts)
	assert.Equal(t, 1, stats.ActiveDays)
	assert.Equal(t, int64(2+7), stats.Totals.TokensSaved)
}

func TestAggregate_Empty(t *testing.T) {
	stats := Aggregate(nil, time.Time{}, time.Time{})
	assert.Zero(t, stats.Sessions)
	assert.Zero(t, stats.Reduction)
	assert.Zero(t, stats.PromptsPerDay)
}

func TestAggregateDays_FillsGaps(t *testing.T) {
	days := AggregateDays(fixture(), time.Date(2026, time.March, 1, 0, 0, 0, 0, time.Local), time.Date(2026, time.March, 5, 0, 0, 0, 0, time.Local))
	require.Len(t, days, 4)

	assert.Equal(t, 4, days[0].Date.Day(), "most recent first")
	assert.Equal(t, 1, days[3].Date.Day())

	assert.Zero(t, days[0].Prompts)
	assert.Zero(t, days[2].Prompts)
	assert.Equal(t, 2, days[1].Prompts)
	assert.Equal(t, 1, days[1].Failures)
	assert.Equal(t, int64(2+7), days[1].Totals.TokensSaved)
	assert.Equal(t, int64(4), days[3].Totals.TokensSaved)
}

func TestAggregateDays_OpenRangeHasNoFill(t *testing.T) {
	days := AggregateDays(fixture(), time.Time{}, time.Time{})
	assert.Len(t, days, 2)
}

func TestAggregateHourly(t *testing.T) {
	hours := AggregateHourly(fixture(), time.Time{}, time.Time{})
	require.Len(t, hours, 24)

	assert.Equal(t, 2, hours[9].Prompts)
	assert.Equal(t, 1, hours[14].Prompts)
	assert.Equal(t, int64(4+7), hours[9].TokensSaved)
	assert.Zero(t, hours[0].Prompts)
}

func TestFilterByTitle(t *testing.T) {
	got := FilterByTitle(fixture(), "LANDING")
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	assert.Len(t, FilterByTitle(fixture(), ""), 3)
	assert.Len(t, FilterByTitle(fixture(), "eco-opt"), 1, "untitled sessions match the default title")
}

func TestSinceAndSeries(t *testing.T) {
	now := time.Date(2026, time.March, 10, 17, 0, 0, 0, time.Local)
	assert.True(t, Since(now, 0).IsZero())
	assert.Equal(t, time.Date(2026, time.March, 10, 0, 0, 0, 0, time.Local), Since(now, 1))
	assert.Equal(t, time.Date(2026, time.March, 4, 0, 0, 0, 0, time.Local), Since(now, 7))

	days := []model.DailyStats{{Prompts: 3}, {Prompts: 2}, {Prompts: 1}}
	assert.Equal(t, []float64{1, 2, 3}, Series(days, func(d model.DailyStats) float64 { return float64(d.Prompts) }))
}
