package cmd

import (
	"fmt"
	"time"

	"github.com/greenstudio/greenstudio/internal/analytics"
	"github.com/greenstudio/greenstudio/internal/cli"
	"github.com/greenstudio/greenstudio/internal/model"

	"github.com/spf13/cobra"
)

var (
	flagSummaryDays  int
	flagSummaryTitle string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Eco-impact analytics across sessions",
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().IntVar(&flagSummaryDays, "days", 0, "Only count activity from the last N days (0 = all time)")
	summaryCmd.Flags().StringVar(&flagSummaryTitle, "title", "", "Only include sessions whose title contains this text")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
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

	now := time.Now()
	since := analytics.Since(now, flagSummaryDays)
	sessions := analytics.FilterByTitle(st.Sessions(), flagSummaryTitle)
	stats := analytics.Aggregate(sessions, since, time.Time{})

	window := "all time"
	if flagSummaryDays > 0 {
		window = fmt.Sprintf("last %d days", flagSummaryDays)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("GREENSTUDIO  Eco Impact  (%s)", window)))
	fmt.Println()

	if stats.Sessions == 0 {
		fmt.Println(cli.Muted("  No activity in this window."))
		fmt.Println()
		return nil
	}

	rows := make([][]string, 0, len(sessions)+2)
	for _, s := range sessions {
		tot := analytics.Aggregate([]model.ChatSession{s}, since, time.Time{}).Totals
		if tot.TokensUsed == 0 {
			continue
		}
		rows = append(rows, []string{
			cli.Truncate(s.DisplayTitle(), 30),
			cli.FormatTokens(tot.TokensSaved),
			cli.FormatEnergyKWh(tot.EnergySavedKWh),
			cli.FormatWater(tot.WaterSavedLitres),
			cli.FormatCarbon(tot.CarbonSavedGrams),
		})
	}
	rows = append(rows, []string{"---"}, []string{
		"Total",
		cli.FormatTokens(stats.Totals.TokensSaved),
		cli.FormatEnergyKWh(stats.Totals.EnergySavedKWh),
		cli.FormatWater(stats.Totals.WaterSavedLitres),
		cli.FormatCarbon(stats.Totals.CarbonSavedGrams),
	})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Session", "Tokens saved", "Energy", "Water", "CO₂"},
		Rows:    rows,
	}))
	fmt.Println()

	reduction := "n/a"
	if stats.Totals.EstimatedBaselineTokens > 0 {
		reduction = cli.FormatPercent(stats.Reduction)
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value", "/day"},
		Rows: [][]string{
			{"Sessions", formatNumber(int64(stats.Sessions)), ""},
			{"Active days", formatNumber(int64(stats.ActiveDays)), ""},
			{"Prompts", formatNumber(int64(stats.Prompts)), fmt.Sprintf("%.1f", stats.PromptsPerDay)},
			{"Replies", formatNumber(int64(stats.Replies)), ""},
			{"Failures", formatNumber(int64(stats.Failures)), ""},
			{"---"},
			{"Tokens used", formatNumber(stats.Totals.TokensUsed), ""},
			{"Baseline tokens", formatNumber(stats.Totals.EstimatedBaselineTokens), ""},
			{"Tokens saved", formatNumber(stats.Totals.TokensSaved), formatNumber(stats.TokensSavedPerDay)},
			{"CO₂ saved", cli.FormatCarbon(stats.Totals.CarbonSavedGrams), cli.FormatCarbon(stats.CarbonPerDay)},
			{"Reduction", reduction, ""},
		},
	}))

	sparkDays := flagSummaryDays
	if sparkDays <= 0 || sparkDays > 30 {
		sparkDays = 14
	}
	days := analytics.AggregateDays(sessions, analytics.Since(now, sparkDays), now)
	carbon := analytics.Series(days, func(d model.DailyStats) float64 { return d.Totals.CarbonSavedGrams })
	fmt.Println()
	fmt.Printf("  CO₂ per day (%dd)  %s\n", sparkDays, cli.RenderSparkline(carbon))

	hours := analytics.AggregateHourly(sessions, since, time.Time{})
	prompts := make([]float64, len(hours))
	for i, h := range hours {
		prompts[i] = float64(h.Prompts)
	}
	fmt.Printf("  Prompts by hour   %s\n", cli.RenderSparkline(prompts))
	fmt.Println()
	return nil
}
