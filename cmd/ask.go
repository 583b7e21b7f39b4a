package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/greenstudio/greenstudio/internal/chat"
	"github.com/greenstudio/greenstudio/internal/cli"
	"github.com/greenstudio/greenstudio/internal/provider"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagAskSession string
	flagAskNew     bool
	flagAskAudit   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt...]",
	Short: "Send one prompt and print the reply with its eco savings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&flagAskSession, "session", "s", "", "Session ID or unique prefix (default: most recent)")
	askCmd.Flags().BoolVarP(&flagAskNew, "new", "n", false, "Start a new session for this prompt")
	askCmd.Flags().BoolVar(&flagAskAudit, "audit", false, "Print the orchestration audit log")
	rootCmd.AddCommand(askCmd)
}

func runAsk(_ *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	if err := chat.Validate(prompt); err != nil {
		return err
	}

	cfg := loadConfigOrDefault()
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := newChatService(ctx, cfg, st, logger)
	if err != nil {
		return err
	}

	sessionID := flagAskSession
	if flagAskNew {
		if sessionID, err = st.CreateSession(); err != nil {
			return err
		}
	} else if sessionID != "" {
		sess, ok := findSession(st, sessionID)
		if !ok {
			return fmt.Errorf("%w: %s", chat.ErrSessionNotFound, sessionID)
		}
		sessionID = sess.ID
		st.SelectSession(sessionID)
	}

	role := resolveRole(cfg)
	logger.Debug("asking", zap.String("role", string(role)), zap.String("session", sessionID))

	reply, err := svc.Submit(ctx, sessionID, prompt, role)
	if err != nil {
		if reply.Message.Text != "" {
			fmt.Fprintln(os.Stderr, cli.RenderError("  "+reply.Message.Text))
		}
		return generationError(err)
	}

	fmt.Println()
	fmt.Println(cli.NewMarkdownRenderer("").Render(reply.Message.Text, outputWidth()))
	fmt.Println()
	if m := reply.Message.Metrics; m != nil {
		fmt.Println("  " + cli.RenderEcoBadges(*m))
		fmt.Println(cli.Muted(fmt.Sprintf("  %s tokens used, ~%s baseline, %s saved  (role %s, session %s)",
			formatNumber(m.TokensUsed), formatNumber(m.EstimatedBaselineTokens),
			formatNumber(m.TokensSaved), role, shortID(reply.SessionID))))
	}

	if flagAskAudit {
		fmt.Println()
		rows := make([][]string, 0, len(reply.Audit))
		for _, e := range reply.Audit {
			rows = append(rows, []string{e.Timestamp.Local().Format("15:04:05.000"), e.Agent, e.Status})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Eco-audit",
			Headers: []string{"Time", "Agent", "Status"},
			Rows:    rows,
		}))
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// generationError maps a failed submit to the error the command reports.
func generationError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return errors.New("interrupted")
	case provider.IsProviderError(err):
		return fmt.Errorf("generation failed: %w", err)
	default:
		return err
	}
}
