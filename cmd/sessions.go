package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/greenstudio/greenstudio/internal/cli"
	"github.com/greenstudio/greenstudio/internal/config"
	"github.com/greenstudio/greenstudio/internal/model"
	"github.com/greenstudio/greenstudio/internal/session"
	"github.com/greenstudio/greenstudio/internal/store"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	sessionsLimit   int
	flagResetYes    bool
	flagDeleteForce bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and manage chat sessions",
	RunE:  runSessionsList,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	RunE:  runSessionsList,
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new empty session and make it active",
	RunE:  runSessionsNew,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a session transcript (default: active session)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase all sessions (also recovers from unreadable state)",
	RunE:  runSessionsReset,
}

func init() {
	sessionsCmd.PersistentFlags().IntVarP(&sessionsLimit, "limit", "l", 20, "Number of sessions to show")
	sessionsDeleteCmd.Flags().BoolVarP(&flagDeleteForce, "force", "f", false, "Delete without confirmation")
	sessionsResetCmd.Flags().BoolVarP(&flagResetYes, "yes", "y", false, "Skip the confirmation prompt")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsNewCmd, sessionsShowCmd, sessionsDeleteCmd, sessionsResetCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(_ *cobra.Command, _ []string) error {
	cfg := loadConfigOrDefault()
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	st, blob, closeStore, err := openState(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions := st.Sessions()
	shown := sessions
	if sessionsLimit > 0 && len(shown) > sessionsLimit {
		shown = shown[:sessionsLimit]
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SESSIONS  (showing %d of %d)", len(shown), len(sessions))))
	fmt.Println()

	now := time.Now()
	rows := make([][]string, 0, len(shown))
	for _, s := range shown {
		id := shortID(s.ID)
		if s.ID == st.ActiveID() {
			id = "*" + id
		}
		rows = append(rows, []string{
			id,
			cli.Truncate(s.DisplayTitle(), 34),
			cli.FormatAge(s.CreatedAt, now),
			fmt.Sprintf("%d", len(s.Messages)),
			cli.FormatTokens(s.SessionTotals.TokensSaved),
			cli.FormatCarbon(s.SessionTotals.CarbonSavedGrams),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"ID", "Title", "Created", "Msgs", "Saved", "CO₂"},
		Rows:    rows,
	}))
	fmt.Println(cli.Muted("  * active session" + lastSaved(blob, now)))
	return nil
}

// lastSaved describes when the session blob was last written, or "" when
// that is unknown.
func lastSaved(blob *store.Blob, now time.Time) string {
	at, ok, err := blob.UpdatedAt()
	if err != nil || !ok {
		return ""
	}
	return ", last saved " + cli.FormatAge(at, now)
}

func runSessionsNew(_ *cobra.Command, _ []string) error {
	cfg := loadConfigOrDefault()
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	id, err := st.CreateSession()
	if err != nil {
		return err
	}
	fmt.Printf("  Started session %s\n", id)
	return nil
}

func runSessionsShow(_ *cobra.Command, args []string) error {
	cfg := loadConfigOrDefault()
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sess := st.Active()
	if len(args) == 1 {
		var ok bool
		if sess, ok = findSession(st, args[0]); !ok {
			return fmt.Errorf("no session matches %q", args[0])
		}
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(sess.DisplayTitle()))
	fmt.Println()
	md := cli.NewMarkdownRenderer("")
	for _, m := range sess.Messages {
		stamp := m.Timestamp.Local().Format("Jan 02 15:04")
		switch m.Role {
		case model.SpeakerUser:
			fmt.Printf("  You  %s\n", cli.Muted(stamp))
			fmt.Println(indent(m.Text))
		case model.SpeakerAssistant:
			fmt.Printf("  GreenStudio  %s\n", cli.Muted(stamp))
			fmt.Println(md.Render(m.Text, outputWidth()))
			if m.Metrics != nil {
				fmt.Println("    " + cli.RenderEcoBadges(*m.Metrics))
			}
		default:
			fmt.Println(cli.RenderError(indent(m.Text)))
		}
		fmt.Println()
	}
	fmt.Print(cli.RenderTotals("Session totals", model.GlobalStats{
		TotalCarbonSaved: sess.SessionTotals.CarbonSavedGrams,
		TotalEnergySaved: sess.SessionTotals.EnergySavedKWh,
		TotalWaterSaved:  sess.SessionTotals.WaterSavedLitres,
		TotalTokensSaved: sess.SessionTotals.TokensSaved,
	}))
	return nil
}

func runSessionsDelete(_ *cobra.Command, args []string) error {
	cfg := loadConfigOrDefault()
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sess, ok := findSession(st, args[0])
	if !ok {
		return fmt.Errorf("no session matches %q", args[0])
	}
	if !flagDeleteForce {
		confirmed, err := confirm(fmt.Sprintf("Delete %q?", sess.DisplayTitle()))
		if err != nil || !confirmed {
			return err
		}
	}
	if _, err := st.DeleteSession(sess.ID); err != nil {
		return err
	}
	fmt.Printf("  Deleted session %s\n", shortID(sess.ID))
	return nil
}

// runSessionsReset clears the stored blob without decoding it, so it works
// even when the saved state is corrupt.
func runSessionsReset(_ *cobra.Command, _ []string) error {
	cfg := loadConfigOrDefault()
	if !flagResetYes {
		confirmed, err := confirm("Erase every session? This cannot be undone.")
		if err != nil || !confirmed {
			return err
		}
	}

	db, err := store.Open(config.StatePath(dataDir(cfg)))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := session.Clear(db.Blob(session.StorageKey)); err != nil {
		return err
	}
	fmt.Println("  All sessions erased.")
	return nil
}

// findSession matches a full ID or a unique ID prefix.
func findSession(st *session.Store, idOrPrefix string) (model.ChatSession, bool) {
	if s, ok := st.Session(idOrPrefix); ok {
		return s, true
	}
	var match model.ChatSession
	n := 0
	for _, s := range st.Sessions() {
		if strings.HasPrefix(s.ID, idOrPrefix) {
			match = s
			n++
		}
	}
	return match, n == 1
}

func confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, err
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}
