package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/greenstudio/greenstudio/internal/chat"
	"github.com/greenstudio/greenstudio/internal/config"
	"github.com/greenstudio/greenstudio/internal/model"
	"github.com/greenstudio/greenstudio/internal/provider"
	"github.com/greenstudio/greenstudio/internal/server"
	"github.com/greenstudio/greenstudio/internal/session"
	"github.com/greenstudio/greenstudio/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "AIzaSyAB...wxyz", maskAPIKey("AIzaSyABCDEFGHIJKLMNOPwxyz"))
	assert.Equal(t, "abcd...", maskAPIKey("abcdefgh"))
	assert.Equal(t, "****", maskAPIKey("abc"))
}

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"serve", "--detach", "--addr", ":9000", "--detach=true"})
	assert.Equal(t, []string{"serve", "--addr", ":9000"}, got)
}

func TestSetupValues_RoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Provider.APIKey = "existing"
	cfg.Provider.TimeoutSec = 0

	v := setupValuesFrom(cfg)
	assert.Equal(t, "60", v.timeout)
	assert.Equal(t, provider.KindGenAI, v.kind)

	v.kind = provider.KindProxy
	v.baseURL = "  http://127.0.0.1:5174 "
	v.timeout = "15"
	v.role = "tester"

	out := v.apply(cfg)
	assert.Equal(t, "existing", out.Provider.APIKey, "blank key keeps the existing one")
	assert.Equal(t, provider.KindProxy, out.Provider.Kind)
	assert.Equal(t, "http://127.0.0.1:5174", out.Provider.BaseURL)
	assert.Equal(t, 15, out.Provider.TimeoutSec)
	assert.Equal(t, "tester", out.General.DefaultRole)
}

func TestSetupValues_BadTimeoutKeepsCurrent(t *testing.T) {
	cfg := config.DefaultConfig()
	v := setupValuesFrom(cfg)
	v.timeout = "soon"
	assert.Equal(t, cfg.Provider.TimeoutSec, v.apply(cfg).Provider.TimeoutSec)
}

func TestFindSession_ByPrefix(t *testing.T) {
	ids := []string{"aaaa1111-x", "aaaa2222-y", "bbbb3333-z"}
	next := 0
	st, err := session.Open(session.NewMemoryPort(nil), session.WithIDFunc(func() string {
		id := ids[next]
		next++
		return id
	}))
	require.NoError(t, err)
	for st.Len() < 3 {
		_, err := st.CreateSession()
		require.NoError(t, err)
	}

	s, ok := findSession(st, "bbbb")
	require.True(t, ok)
	assert.Equal(t, "bbbb3333-z", s.ID)

	_, ok = findSession(st, "aaaa")
	assert.False(t, ok, "ambiguous prefix")

	s, ok = findSession(st, "aaaa2222-y")
	require.True(t, ok)
	assert.Equal(t, "aaaa2222-y", s.ID)

	_, ok = findSession(st, "zzzz")
	assert.False(t, ok)
}

func TestPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serve.pid")
	require.NoError(t, writePID(path, 4242))

	pid, err := readPID(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	require.NoError(t, writeState(statePath(path), serveRuntimeState{PID: pid, Addr: "127.0.0.1:5174"}))
	st, err := readState(statePath(path))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5174", st.Addr)
}

func TestShortIDAndIndent(t *testing.T) {
	assert.Equal(t, "12345678", shortID("1234567890"))
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "    a\n    b", indent("a\nb"))
	assert.Equal(t, "1,234", formatNumber(1234))
}

type textGenerator string

func (g textGenerator) Generate(context.Context, string, string, []model.Turn) (string, error) {
	return string(g), nil
}

func TestServeStatus_ReadsRunningServer(t *testing.T) {
	svc := server.New(server.Config{Model: "gemini-test"}, textGenerator(strings.Repeat("x", 4000)), nil)
	ts := httptest.NewServer(svc.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/generate", "application/json", strings.NewReader(`{"prompt":"go"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	st, err := fetchServeStatus(ts.Client(), strings.TrimPrefix(ts.URL, "http://"))
	require.NoError(t, err)
	assert.EqualValues(t, 2200, st.Totals.TokensSaved)

	var out bytes.Buffer
	printServeStatus(&out, st)
	assert.Contains(t, out.String(), "Model: gemini-test")
	assert.Contains(t, out.String(), "Requests: 1 (0 failed)")
	assert.Contains(t, out.String(), "Tokens saved: 2,200")
	assert.Contains(t, out.String(), "Carbon saved: 0.88g")
	assert.NotContains(t, out.String(), "Last error")
}

func TestServeStatus_ReportsBadResponses(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer down.Close()
	_, err := fetchServeStatus(down.Client(), strings.TrimPrefix(down.URL, "http://"))
	assert.ErrorContains(t, err, "HTTP 503")

	garbled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{"))
	}))
	defer garbled.Close()
	_, err = fetchServeStatus(garbled.Client(), strings.TrimPrefix(garbled.URL, "http://"))
	assert.ErrorContains(t, err, "malformed response")
}

func TestGenerationError(t *testing.T) {
	pe := &provider.ProviderError{Provider: "genai", Message: "quota"}
	err := generationError(fmt.Errorf("submit: %w", pe))
	assert.ErrorContains(t, err, "generation failed")
	assert.True(t, provider.IsProviderError(err))

	assert.EqualError(t, generationError(context.Canceled), "interrupted")

	miss := fmt.Errorf("%w: abc", chat.ErrSessionNotFound)
	assert.Same(t, miss, generationError(miss))

	other := errors.New("disk full")
	assert.Same(t, other, generationError(other))
}

func TestLastSaved(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	blob := db.Blob(session.StorageKey)

	assert.Empty(t, lastSaved(blob, time.Now()))

	require.NoError(t, blob.Save([]byte("[]")))
	assert.Contains(t, lastSaved(blob, time.Now().Add(2*time.Minute)), ", last saved 2m")
}
