package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugRaw, "debug-raw", false, "Emit raw wire events to stderr")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "Disable markdown rendering and colors")
}

var rootCmd = &cobra.Command{
	Use:   "plume",
	Short: "Streaming chat client for responses-style LLM APIs",
	Long: `plume streams chat turns from a responses-style LLM API and renders
text, reasoning summaries, tool calls and citations as they arrive.

Examples:
  plume chat "explain goroutine leaks"
  plume chat -c "and how do I detect them?"   # continue last conversation
  plume chat --search "latest Go release notes"
  plume replay turn.ndjson                    # re-run a recorded stream
  plume sessions list`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

var debugRaw bool
var plainOutput bool

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
