package cmd

import (
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rustyeddy/riskengine/journal"
	"github.com/rustyeddy/riskengine/trade"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the position and decision journal",
	Long: `Query and display journal records from the SQLite database.

Subcommands:
  position <id>   - Show one position
  positions       - List positions, optionally by status
  decisions       - List recent risk decisions
  realized        - Realized PnL of positions closed since a day
  import-legacy   - Import flat legacy position documents

Examples:
  riskctl journal positions --status open
  riskctl journal decisions --symbol BTCUSDT --limit 20 --format csv
  riskctl journal realized --since 2024-01-15`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCmd.PersistentPreRun(cmd, args)
		if dbPath == "" {
			dbPath = "./riskctl.sqlite"
		}
		return nil
	},
}

var journalPositionCmd = &cobra.Command{
	Use:   "position <id>",
	Short: "Show one position",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalPosition,
}

var journalPositionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List positions",
	Args:  cobra.NoArgs,
	RunE:  runJournalPositions,
}

var journalDecisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "List recent risk decisions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runJournalDecisions,
}

var journalRealizedCmd = &cobra.Command{
	Use:   "realized",
	Short: "Realized PnL of positions closed since the start of a day (UTC)",
	Args:  cobra.NoArgs,
	RunE:  runJournalRealized,
}

var journalImportCmd = &cobra.Command{
	Use:   "import-legacy <file>",
	Short: "Import a JSON array of legacy flat position documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalImport,
}

var (
	positionsFormat string
	decisionsFormat string
	journalStatus   string
	journalSymbol   string
	journalLimit    int
	journalSince    string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalPositionCmd)
	journalCmd.AddCommand(journalPositionsCmd)
	journalCmd.AddCommand(journalDecisionsCmd)
	journalCmd.AddCommand(journalRealizedCmd)
	journalCmd.AddCommand(journalImportCmd)

	for _, c := range []*cobra.Command{journalPositionCmd, journalPositionsCmd} {
		c.Flags().StringVarP(&positionsFormat, "format", "f", "org", "output format: org, json or legacy")
	}
	journalPositionsCmd.Flags().StringVar(&journalStatus, "status", "", "open, closing, closed or failed (default all)")

	journalDecisionsCmd.Flags().StringVarP(&decisionsFormat, "format", "f", "json", "output format: json or csv")
	journalDecisionsCmd.Flags().StringVar(&journalSymbol, "symbol", "", "only this symbol")
	journalDecisionsCmd.Flags().IntVar(&journalLimit, "limit", 50, "maximum rows, 0 for all")

	journalRealizedCmd.Flags().StringVar(&journalSince, "since", "", "YYYY-MM-DD (default today)")
}

func openJournal() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func writePositions(cmd *cobra.Command, ps []trade.Position) error {
	out := cmd.OutOrStdout()
	switch positionsFormat {
	case "org":
		fmt.Fprintln(out, journal.FormatPositionsOrg(ps))
		return nil
	case "json":
		return writeJSON(out, ps)
	case "legacy":
		docs := make([]journal.LegacyPosition, len(ps))
		for i, p := range ps {
			docs[i] = journal.ToLegacy(p)
		}
		return writeJSON(out, docs)
	}
	return fmt.Errorf("unknown format %q", positionsFormat)
}

func runJournalPosition(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	p, err := j.GetPosition(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}
	return writePositions(cmd, []trade.Position{p})
}

func runJournalPositions(cmd *cobra.Command, args []string) error {
	status := trade.PositionStatus(journalStatus)
	if status != "" && !status.Valid() {
		return fmt.Errorf("unknown status %q", journalStatus)
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	ps, err := j.ListPositions(cmd.Context(), status)
	if err != nil {
		return fmt.Errorf("query positions: %w", err)
	}
	return writePositions(cmd, ps)
}

func runJournalDecisions(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	ds, err := j.ListDecisions(cmd.Context(), journalSymbol, journalLimit)
	if err != nil {
		return fmt.Errorf("query decisions: %w", err)
	}

	switch decisionsFormat {
	case "csv":
		return journal.WriteDecisionsCSV(cmd.OutOrStdout(), ds)
	case "json":
		return writeJSON(cmd.OutOrStdout(), ds)
	}
	return fmt.Errorf("unknown format %q", decisionsFormat)
}

func runJournalRealized(cmd *cobra.Command, args []string) error {
	day := journalSince
	if day == "" {
		day = time.Now().UTC().Format("2006-01-02")
	}
	start, _, err := dayBounds(time.UTC, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	total, err := j.RealizedSince(cmd.Context(), start)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Realized since %s: %s USD\n", start.Format(time.RFC3339), total.StringFixed(2))
	return nil
}

func runJournalImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var docs []jsoniter.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("import %s: want a JSON array: %w", args[0], err)
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	for i, doc := range docs {
		p, err := journal.DecodeLegacyPosition(doc)
		if err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		if err := j.SavePosition(cmd.Context(), p); err != nil {
			return err
		}
		log.Debug("imported legacy position", zap.String("position_id", p.ID), zap.String("status", string(p.Status)))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d positions into %s\n", len(docs), dbPath)
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
