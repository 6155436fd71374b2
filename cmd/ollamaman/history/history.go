package historycmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/g023/g023-OllamaMan-sub000/cmd/ollamaman/dbpath"
	"github.com/g023/g023-OllamaMan-sub000/pkg/storage"
)

const historyLongDesc string = `List, search or show stored conversations.

With no arguments the most recent conversations are listed, newest first.
Pass a conversation ID to print its messages.

Examples:
  ollamaman history
  ollamaman history --starred --limit 10
  ollamaman history --search goroutines
  ollamaman history 3f1c2a9e-... --render`

const historyShortDesc string = "Browse conversation history"

type historyCommander struct {
	dbPath  string
	limit   int
	offset  int
	starred bool
	search  string
	asJSON  bool
	render  bool
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history [conversation-id]",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.dbPath, "db", "d", "", "Path to SQLite database")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", storage.DefaultListLimit, "Maximum conversations to list")
	cmd.Flags().IntVar(&cmder.offset, "offset", 0, "Conversations to skip")
	cmd.Flags().BoolVar(&cmder.starred, "starred", false, "Only list starred conversations")
	cmd.Flags().StringVarP(&cmder.search, "search", "s", "", "Search titles, models and messages")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print JSON")
	cmd.Flags().BoolVarP(&cmder.render, "render", "r", false, "Render assistant replies as markdown")

	return cmd
}

func (c *historyCommander) run(ctx context.Context, cmd *cobra.Command, args []string) error {
	path, err := dbpath.ResolveDBPath(c.dbPath)
	if err != nil {
		return fmt.Errorf("could not resolve database: %w", err)
	}

	db, err := storage.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("could not open database %s: %w", path, err)
	}
	defer db.Close()

	store := storage.NewConversationStore(db)
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		conv, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if c.asJSON {
			return writeJSON(out, conv)
		}
		return detectTerminal(out).printConversation(out, conv, c.render)
	}

	var list []*storage.Conversation
	if c.search != "" {
		list, err = store.Search(ctx, c.search, c.limit)
	} else {
		list, err = store.List(ctx, storage.ListOptions{Limit: c.limit, Offset: c.offset, StarredOnly: c.starred})
	}
	if err != nil {
		return err
	}

	if c.asJSON {
		if list == nil {
			list = []*storage.Conversation{}
		}
		return writeJSON(out, list)
	}

	if len(list) == 0 {
		fmt.Fprintln(out, "No conversations found")
		return nil
	}
	t := detectTerminal(out)
	for _, conv := range list {
		fmt.Fprintln(out, t.listLine(conv))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
