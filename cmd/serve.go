package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/greenstudio/greenstudio/internal/cli"
	"github.com/greenstudio/greenstudio/internal/provider"
	"github.com/greenstudio/greenstudio/internal/server"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type serveRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	Model     string    `json:"model"`
}

var (
	flagServeAddr         string
	flagServeDetach       bool
	flagServePIDFile      string
	flagServeLogFile      string
	flagServeEventsBuffer int
	flagServeChild        bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the generation server (HTTP API with live SSE feed)",
	Long: "Serves POST /api/generate and /api/orchestrate backed by the Gemini API, " +
		"so clients never hold the API key. GET /v1/status, /v1/events and " +
		"/v1/stream report the savings of every served generation.",
	RunE: runServe,
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server process and API status",
	RunE:  runServeStatus,
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	RunE:  runServeStop,
}

func init() {
	serveCmd.PersistentFlags().StringVar(&flagServeAddr, "addr", "", "HTTP listen address (default from config)")
	serveCmd.PersistentFlags().StringVar(&flagServePIDFile, "pid-file", "", "PID file path (default in data dir)")
	serveCmd.PersistentFlags().StringVar(&flagServeLogFile, "log-file", "", "Log file path for detached mode (default in data dir)")
	serveCmd.PersistentFlags().IntVar(&flagServeEventsBuffer, "events-buffer", 0, "Max in-memory events retained (default from config)")

	serveCmd.Flags().BoolVar(&flagServeDetach, "detach", false, "Run the server as a background process")
	serveCmd.Flags().BoolVar(&flagServeChild, "child", false, "Internal: mark detached child process")
	_ = serveCmd.Flags().MarkHidden("child")

	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

// servePaths resolves flag defaults against the config.
func servePaths() (addr, pidFile, logFile string, events int) {
	cfg := loadConfigOrDefault()
	dir := dataDir(cfg)

	addr = orDefault(flagServeAddr, cfg.Server.Addr)
	pidFile = orDefault(flagServePIDFile, filepath.Join(dir, "greenstudio-serve.pid"))
	logFile = orDefault(flagServeLogFile, filepath.Join(dir, "greenstudio-serve.log"))
	events = flagServeEventsBuffer
	if events <= 0 {
		events = cfg.Server.EventsBuffer
	}
	return addr, pidFile, logFile, events
}

func runServe(_ *cobra.Command, _ []string) error {
	if flagServeDetach && flagServeChild {
		return errors.New("invalid serve launch mode")
	}

	if flagServeDetach {
		return startServeDetached()
	}
	return runServeForeground()
}

func startServeDetached() error {
	addr, pidFile, logFile, _ := servePaths()
	if err := ensureServerNotRunning(pidFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(pidFile), 0o750); err != nil {
		return fmt.Errorf("create server directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o750); err != nil {
		return fmt.Errorf("create server log directory: %w", err)
	}

	//nolint:gosec // log path is configured by the local user
	logf, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open server log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	cmd := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.Stdin = nil
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detached server: %w", err)
	}

	fmt.Printf("  Started server (pid %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidFile)
	fmt.Printf("  API: http://%s/v1/status\n", addr)
	fmt.Printf("  Log: %s\n", logFile)
	return nil
}

func runServeForeground() error {
	addr, pidFile, _, events := servePaths()
	if err := ensureServerNotRunning(pidFile); err != nil {
		return err
	}

	cfg := loadConfigOrDefault()
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The server is the proxy, so it always talks to Gemini directly.
	pcfg := providerConfig(cfg)
	if pcfg.Kind == provider.KindProxy {
		logger.Warn("provider kind is proxy; serve uses the Gemini API directly")
	}
	pcfg.Kind = provider.KindGenAI
	gen, err := provider.New(ctx, pcfg, logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(pidFile), 0o750); err != nil {
		return fmt.Errorf("create server directory: %w", err)
	}
	pid := os.Getpid()
	if err := writePID(pidFile, pid); err != nil {
		return err
	}
	defer func() { _ = os.Remove(pidFile) }()

	model := orDefault(pcfg.Model, provider.DefaultModel)
	_ = writeState(statePath(pidFile), serveRuntimeState{
		PID:       pid,
		Addr:      addr,
		StartedAt: time.Now(),
		Model:     model,
	})
	defer func() { _ = os.Remove(statePath(pidFile)) }()

	svc := server.New(server.Config{Addr: addr, EventsBuffer: events, Model: model}, gen, logger)

	fmt.Printf("  greenstudio server listening on http://%s\n", addr)
	fmt.Printf("  Model: %s\n", model)
	fmt.Printf("  Stop with: greenstudio serve stop --pid-file %s\n", pidFile)

	logger.Info("serve started", zap.String("addr", addr), zap.Int("pid", pid))
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runServeStatus(_ *cobra.Command, _ []string) error {
	addr, pidFile, _, _ := servePaths()
	pid, err := readPID(pidFile)
	if err != nil {
		fmt.Printf("  Server: not running (pid file not found)\n")
		return nil
	}

	if !processAlive(pid) {
		fmt.Printf("  Server: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	if st, err := readState(statePath(pidFile)); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	fmt.Printf("  Server PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	st, err := fetchServeStatus(client, addr)
	if err != nil {
		fmt.Printf("  API status: %v\n", err)
		return nil
	}
	printServeStatus(os.Stdout, st)
	return nil
}

// fetchServeStatus reads /v1/status from a running server.
func fetchServeStatus(client *http.Client, addr string) (server.Status, error) {
	var st server.Status
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		return st, fmt.Errorf("unreachable (%w)", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed response (%w)", err)
	}
	return st, nil
}

func printServeStatus(w io.Writer, st server.Status) {
	_, _ = fmt.Fprintf(w, "  Up since: %s\n", st.StartedAt.Local().Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "  Model: %s\n", st.Model)
	_, _ = fmt.Fprintf(w, "  Requests: %d (%d failed)\n", st.Requests, st.Failures)
	_, _ = fmt.Fprintf(w, "  Tokens saved: %s\n", formatNumber(st.Totals.TokensSaved))
	_, _ = fmt.Fprintf(w, "  Carbon saved: %s\n", cli.FormatCarbon(st.Totals.CarbonSavedGrams))
	if st.LastError != "" {
		_, _ = fmt.Fprintf(w, "  Last error: %s\n", st.LastError)
	}
}

func runServeStop(_ *cobra.Command, _ []string) error {
	_, pidFile, _, _ := servePaths()
	pid, err := readPID(pidFile)
	if err != nil {
		return errors.New("server is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find server process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal server process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(pidFile)
			_ = os.Remove(statePath(pidFile))
			fmt.Printf("  Stopped server (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}

	return fmt.Errorf("server (pid %d) did not exit in time", pid)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func ensureServerNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return fmt.Errorf("server already running (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	_ = os.Remove(statePath(pidFile))
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	//nolint:gosec // pid path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func statePath(pidFile string) string {
	return pidFile + ".json"
}

func writeState(path string, st serveRuntimeState) error {
	data, err := sonic.ConfigDefault.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readState(path string) (serveRuntimeState, error) {
	var st serveRuntimeState
	//nolint:gosec // state path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	if err := sonic.Unmarshal(data, &st); err != nil {
		return st, err
	}
	return st, nil
}
