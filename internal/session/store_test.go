package session

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/greenstudio/greenstudio/internal/eco"
	"github.com/greenstudio/greenstudio/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func testClock() func() time.Time {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func openTest(t *testing.T, port Port) *Store {
	t.Helper()
	s, err := Open(port, WithIDFunc(seqIDs()), WithClock(testClock()))
	require.NoError(t, err)
	return s
}

func metricsMsg(text string) model.Message {
	m := eco.Estimate(text)
	return model.Message{Role: model.SpeakerAssistant, Text: text, Metrics: &m}
}

func TestOpen_FreshCreatesActiveSession(t *testing.T) {
	port := NewMemoryPort(nil)
	s := openTest(t, port)

	require.Equal(t, 1, s.Len())
	assert.Equal(t, "id-1", s.ActiveID())
	assert.Equal(t, model.DefaultTitle, s.Active().DisplayTitle())
	assert.Equal(t, 1, port.Saves(), "fresh state is persisted")
}

func TestOpen_RestoresVerbatim(t *testing.T) {
	port := NewMemoryPort(nil)
	s := openTest(t, port)
	_, err := s.AppendMessage(s.ActiveID(), model.Message{Role: model.SpeakerUser, Text: "hello"})
	require.NoError(t, err)
	_, err = s.AppendMessage(s.ActiveID(), metricsMsg(strings.Repeat("a", 40)))
	require.NoError(t, err)
	second, err := s.CreateSession()
	require.NoError(t, err)

	restored := openTest(t, port)
	require.Equal(t, 2, restored.Len())
	assert.Equal(t, second, restored.ActiveID(), "head of list becomes active")

	orig, ok := s.Session("id-1")
	require.True(t, ok)
	got, ok := restored.Session("id-1")
	require.True(t, ok)
	assert.Equal(t, orig.Title, got.Title)
	assert.Equal(t, orig.SessionTotals, got.SessionTotals)
	require.Len(t, got.Messages, 2)
	assert.True(t, orig.Messages[1].Timestamp.Equal(got.Messages[1].Timestamp))
	assert.Equal(t, *orig.Messages[1].Metrics, *got.Messages[1].Metrics)
}

func TestOpen_CorruptBlob(t *testing.T) {
	_, err := Open(NewMemoryPort([]byte(`{"not":"a list"`)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptState))
}

func TestClear_RecoversFromCorruptBlob(t *testing.T) {
	port := NewMemoryPort([]byte(`garbage`))
	_, err := Open(port)
	require.ErrorIs(t, err, ErrCorruptState)

	require.NoError(t, Clear(port))
	s := openTest(t, port)
	assert.Equal(t, 1, s.Len())
}

type failingPort struct{ loadErr, saveErr error }

func (p failingPort) Load() ([]byte, bool, error) { return nil, false, p.loadErr }
func (p failingPort) Save([]byte) error           { return p.saveErr }

func TestOpen_PortErrors(t *testing.T) {
	_, err := Open(failingPort{loadErr: errors.New("disk gone")})
	assert.ErrorContains(t, err, "disk gone")

	_, err = Open(failingPort{saveErr: errors.New("read-only")})
	assert.ErrorContains(t, err, "persisting sessions")
}

func TestCreateSession_HeadAndActive(t *testing.T) {
	s := openTest(t, NewMemoryPort(nil))
	id, err := s.CreateSession()
	require.NoError(t, err)

	assert.Equal(t, id, s.ActiveID())
	sessions := s.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, id, sessions[0].ID)
	assert.Zero(t, sessions[0].SessionTotals)
	assert.Empty(t, sessions[0].Messages)
}

func TestSelectSession(t *testing.T) {
	s := openTest(t, NewMemoryPort(nil))
	first := s.ActiveID()
	_, err := s.CreateSession()
	require.NoError(t, err)

	assert.True(t, s.SelectSession(first))
	assert.Equal(t, first, s.ActiveID())

	assert.False(t, s.SelectSession("nope"))
	assert.Equal(t, first, s.ActiveID())
}

func TestAppendMessage_TitleFromFirstUserMessage(t *testing.T) {
	s := openTest(t, NewMemoryPort(nil))
	id := s.ActiveID()

	ok, err := s.AppendMessage(id, model.Message{Role: model.SpeakerUser, Text: "Optimize this loop for performance please"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Optimize this loop for perform...", s.Active().Title)

	_, err = s.AppendMessage(id, model.Message{Role: model.SpeakerUser, Text: "second"})
	require.NoError(t, err)
	assert.Equal(t, "Optimize this loop for perform...", s.Active().Title, "title is set once")
}

func TestAppendMessage_TitleIgnoresNonUserMessages(t *testing.T) {
	s := openTest(t, NewMemoryPort(nil))
	id := s.ActiveID()

	_, err := s.AppendMessage(id, model.Message{Role: model.SpeakerSystem, Text: "Error connecting"})
	require.NoError(t, err)
	assert.Empty(t, s.Active().Title)

	_, err = s.AppendMessage(id, model.Message{Role: model.SpeakerUser, Text: "short"})
	require.NoError(t, err)
	assert.Equal(t, "short", s.Active().Title)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "", Title(""))
	assert.Equal(t, strings.Repeat("x", 30), Title(strings.Repeat("x", 30)))
	assert.Equal(t, strings.Repeat("x", 30)+"...", Title(strings.Repeat("x", 31)))
	assert.Equal(t, strings.Repeat("é", 30)+"...", Title(strings.Repeat("é", 40)))
}

func TestAppendMessage_AccumulatesTotals(t *testing.T) {
	s := openTest(t, NewMemoryPort(nil))
	id := s.ActiveID()

	texts := []string{strings.Repeat("a", 40), strings.Repeat("b", 13), strings.Repeat("c", 400)}
	var want model.EcoMetrics
	for _, txt := range texts {
		msg := metricsMsg(txt)
		want = want.Add(*msg.Metrics)
		ok, err := s.AppendMessage(id, msg)
		require.NoError(t, err)
		require.True(t, ok)
	}
	_, err := s.AppendMessage(id, model.Message{Role: model.SpeakerUser, Text: "no metrics"})
	require.NoError(t, err)

	got := s.Active().SessionTotals
	assert.Equal(t, want.TokensUsed, got.TokensUsed)
	assert.Equal(t, want.TokensSaved, got.TokensSaved)
	assert.Equal(t, want.EstimatedBaselineTokens, got.EstimatedBaselineTokens)
	assert.InDelta(t, want.EnergySavedKWh, got.EnergySavedKWh, 1e-12)
	assert.InDelta(t, want.WaterSavedLitres, got.WaterSavedLitres, 1e-12)
	assert.InDelta(t, want.CarbonSavedGrams, got.CarbonSavedGrams, 1e-12)
	assert.Len(t, s.Active().Messages, 4)
}

func TestAppendMessage_TotalsNeverDecrease(t *testing.T) {
	s := openTest(t, NewMemoryPort(nil))
	id := s.ActiveID()
	prev := s.Active().SessionTotals
	for i := 1; i <= 20; i++ {
		_, err := s.AppendMessage(id, metricsMsg(strings.Repeat("z", i*7)))
		require.NoError(t, err)
		cur := s.Active().SessionTotals
		require.GreaterOrEqual(t, cur.TokensSaved, prev.TokensSaved)
		require.GreaterOrEqual(t, cur.EnergySavedKWh, prev.EnergySavedKWh)
		require.GreaterOrEqual(t, cur.WaterSavedLitres, prev.WaterSavedLitres)
		require.GreaterOrEqual(t, cur.CarbonSavedGrams, prev.CarbonSavedGrams)
		prev = cur
	}
}

func TestAppendMessage_UnknownSession(t *testing.T) {
	port := NewMemoryPort(nil)
	s := openTest(t, port)
	saves := port.Saves()

	ok, err := s.AppendMessage("missing", model.Message{Role: model.SpeakerUser, Text: "hi"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, saves, port.Saves(), "no write on miss")
	assert.Empty(t, s.Active().Messages)
}

func TestAppendMessage_FillsIDAndTimestamp(t *testing.T) {
	s := openTest(t, NewMemoryPort(nil))
	_, err := s.AppendMessage(s.ActiveID(), model.Message{Role: model.SpeakerUser, Text: "x"})
	require.NoError(t, err)

	msg := s.Active().Messages[0]
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestAppendMessage_CopiesMetrics(t *testing.T) {
	s := openTest(t, NewMemoryPort(nil))
	msg := metricsMsg("abcd")
	_, err := s.AppendMessage(s.ActiveID(), msg)
	require.NoError(t, err)

	msg.Metrics.TokensUsed = 999
	assert.Equal(t, int64(1), s.Active().Messages[0].Metrics.TokensUsed)
}

func TestDeleteSession_ActiveGetsReplacement(t *testing.T) {
	s := openTest(t, NewMemoryPort(nil))
	active := s.ActiveID()

	ok, err := s.DeleteSession(active)
	require.NoError(t, err)
	require.True(t, ok)

	assert.NotEmpty(t, s.ActiveID())
	assert.NotEqual(t, active, s.ActiveID())
	_, found := s.Session(active)
	assert.False(t, found)
	assert.Equal(t, 1, s.Len())
}

func TestDeleteSession_NonActiveKeepsPointer(t *testing.T) {
	s := openTest(t, NewMemoryPort(nil))
	older := s.ActiveID()
	newer, err := s.CreateSession()
	require.NoError(t, err)

	ok, err := s.DeleteSession(older)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, newer, s.ActiveID())
	assert.Equal(t, 1, s.Len())

	ok, err = s.DeleteSession("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGlobalStats_CreateDeleteIsZero(t *testing.T) {
	s := openTest(t, NewMemoryPort(nil))
	id, err := s.CreateSession()
	require.NoError(t, err)
	_, err = s.DeleteSession(id)
	require.NoError(t, err)

	assert.Equal(t, model.GlobalStats{}, s.GlobalStats())
}

func TestGlobalStats_FoldsAllSessions(t *testing.T) {
	s := openTest(t, NewMemoryPort(nil))
	a := s.ActiveID()
	b, err := s.CreateSession()
	require.NoError(t, err)

	_, err = s.AppendMessage(a, metricsMsg(strings.Repeat("a", 40)))
	require.NoError(t, err)
	_, err = s.AppendMessage(b, metricsMsg(strings.Repeat("b", 400)))
	require.NoError(t, err)

	var want model.GlobalStats
	for _, sess := range s.Sessions() {
		want.TotalTokensSaved += sess.SessionTotals.TokensSaved
		want.TotalEnergySaved += sess.SessionTotals.EnergySavedKWh
		want.TotalWaterSaved += sess.SessionTotals.WaterSavedLitres
		want.TotalCarbonSaved += sess.SessionTotals.CarbonSavedGrams
	}
	got := s.GlobalStats()
	assert.Equal(t, want, got)
	assert.Equal(t, int64(22+220), got.TotalTokensSaved)

	_, err = s.DeleteSession(b)
	require.NoError(t, err)
	assert.Equal(t, int64(22), s.GlobalStats().TotalTokensSaved, "recomputed after delete")
}

func TestReset(t *testing.T) {
	s := openTest(t, NewMemoryPort(nil))
	_, err := s.AppendMessage(s.ActiveID(), metricsMsg("abcdefgh"))
	require.NoError(t, err)
	_, err = s.CreateSession()
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, model.GlobalStats{}, s.GlobalStats())
}

func TestSessions_ReturnsCopies(t *testing.T) {
	s := openTest(t, NewMemoryPort(nil))
	_, err := s.AppendMessage(s.ActiveID(), model.Message{Role: model.SpeakerUser, Text: "x"})
	require.NoError(t, err)

	list := s.Sessions()
	list[0].Messages[0].Text = "changed"
	list[0].Title = "changed"
	assert.Equal(t, "x", s.Active().Messages[0].Text)
	assert.Equal(t, "x", s.Active().Title)
}

func TestEveryMutationPersists(t *testing.T) {
	port := NewMemoryPort(nil)
	s := openTest(t, port)
	base := port.Saves()

	id, err := s.CreateSession()
	require.NoError(t, err)
	_, err = s.AppendMessage(id, model.Message{Role: model.SpeakerUser, Text: "x"})
	require.NoError(t, err)
	_, err = s.DeleteSession(id)
	require.NoError(t, err)

	// create, append, delete (+ replacement create, which persists inside)
	assert.Equal(t, base+3, port.Saves())
}
