package logscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/g023/g023-OllamaMan-sub000/cmd/ollamaman/dbpath"
	"github.com/g023/g023-OllamaMan-sub000/pkg/storage"
)

const logsLongDesc string = `Show or clear the log of calls made to the Ollama server.

Examples:
  ollamaman logs
  ollamaman logs --limit 20 --json
  ollamaman logs --prune 168h
  ollamaman logs --clear`

const logsShortDesc string = "Show the API call log"

type logsCommander struct {
	dbPath string
	limit  int
	clear  bool
	prune  time.Duration
	asJSON bool
}

func NewLogsCmd() *cobra.Command {
	cmder := &logsCommander{}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: logsShortDesc,
		Long:  logsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.dbPath, "db", "d", "", "Path to SQLite database")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", storage.DefaultLogLimit, "Maximum entries to show")
	cmd.Flags().BoolVar(&cmder.clear, "clear", false, "Delete every entry")
	cmd.Flags().DurationVar(&cmder.prune, "prune", 0, "Delete entries older than this age")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print JSON")
	cmd.MarkFlagsMutuallyExclusive("clear", "prune")

	return cmd
}

func (c *logsCommander) run(ctx context.Context, cmd *cobra.Command) error {
	path, err := dbpath.ResolveDBPath(c.dbPath)
	if err != nil {
		return fmt.Errorf("could not resolve database: %w", err)
	}

	db, err := storage.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("could not open database %s: %w", path, err)
	}
	defer db.Close()

	store := storage.NewAPILogStore(db)
	out := cmd.OutOrStdout()

	switch {
	case c.clear:
		n, err := store.Clear(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d log entries\n", n)
		return nil
	case c.prune > 0:
		n, err := store.PruneBefore(ctx, time.Now().Add(-c.prune))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d log entries older than %s\n", n, c.prune)
		return nil
	}

	entries, err := store.List(ctx, c.limit)
	if err != nil {
		return err
	}

	if c.asJSON {
		if entries == nil {
			entries = []*storage.APILog{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No log entries")
		return nil
	}
	for _, e := range entries {
		status := "ok"
		if e.Error != nil {
			status = "error: " + *e.Error
		}
		duration := "-"
		if e.DurationMs != nil {
			duration = fmt.Sprintf("%dms", *e.DurationMs)
		}
		fmt.Fprintf(out, "%s  %-6s %-12s %8s  %v  %s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Method, e.Endpoint, duration, e.Request["model"], status)
	}
	return nil
}
