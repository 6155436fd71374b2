package main

import (
	"os"

	"github.com/spf13/cobra"

	historycmder "github.com/g023/g023-OllamaMan-sub000/cmd/ollamaman/history"
	logscmder "github.com/g023/g023-OllamaMan-sub000/cmd/ollamaman/logs"
	servecmder "github.com/g023/g023-OllamaMan-sub000/cmd/ollamaman/serve"
)

const rootLongDesc string = `ollamaman is a management console for an Ollama server.

It relays chat requests to Ollama, streams replies to the browser as
Server-Sent Events, and keeps conversation history, settings and an
API call log in a local SQLite database.`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ollamaman",
		Short:         "Ollama management console",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(logscmder.NewLogsCmd())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
