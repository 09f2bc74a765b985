package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plumekit/plume/internal/llm"
	"github.com/plumekit/plume/internal/render"
	"github.com/plumekit/plume/internal/replay"
)

var replayJSON bool

func init() {
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Print the final state as JSON instead of rendering")
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay <log.ndjson>",
	Short: "Re-run a recorded event stream and render the result",
	Long: `replay loads an ndjson event log recorded with --record and feeds it
through the same accumulator a live stream uses. The same log always
produces the same final state, which makes recorded turns useful as
bug reports.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := replay.Load(args[0])
		if err != nil {
			return err
		}

		// Sequential ids make replays reproducible even where the
		// recorded events carry no item ids.
		st := log.Run(llm.NewIdentityPolicy(llm.SequentialIDs("replay")))

		if replayJSON {
			data, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		out, err := render.NewRenderer(os.Stdout, plainOutput)
		if err != nil {
			return err
		}
		out.Turn(st)
		return nil
	},
}
