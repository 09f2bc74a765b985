package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plumekit/plume/internal/render"
	"github.com/plumekit/plume/internal/session"
)

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved conversations",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved conversations, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewSQLiteStore()
		if err != nil {
			return err
		}
		defer store.Close()

		convs, err := store.ListConversations(cmd.Context(), 50, 0)
		if err != nil {
			return err
		}
		if len(convs) == 0 {
			fmt.Println("no saved conversations")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUPDATED\tSTATUS\tTITLE")
		for _, c := range convs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				c.ID[:8], c.UpdatedAt.Format("2006-01-02 15:04"), c.Status, c.Title)
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the turns of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewSQLiteStore()
		if err != nil {
			return err
		}
		defer store.Close()

		conv, err := resolveSessionID(cmd, store, args[0])
		if err != nil {
			return err
		}
		turns, err := store.GetTurns(cmd.Context(), conv.ID)
		if err != nil {
			return err
		}

		out, err := render.NewRenderer(os.Stdout, plainOutput)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s, %d turns)\n\n", conv.Title, conv.Model, len(turns))
		for _, t := range turns {
			fmt.Printf("> %s\n\n", t.UserText)
			if t.State != nil {
				out.Turn(t.State)
			}
			fmt.Println()
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation and its turns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewSQLiteStore()
		if err != nil {
			return err
		}
		defer store.Close()

		conv, err := resolveSessionID(cmd, store, args[0])
		if err != nil {
			return err
		}
		if err := store.DeleteConversation(cmd.Context(), conv.ID); err != nil {
			return err
		}
		fmt.Println("deleted", conv.ID)
		return nil
	},
}

// resolveSessionID accepts a full conversation id or the 8-char prefix
// the list command prints.
func resolveSessionID(cmd *cobra.Command, store session.Store, id string) (*session.Conversation, error) {
	if conv, err := store.GetConversation(cmd.Context(), id); err == nil {
		return conv, nil
	}
	convs, err := store.ListConversations(cmd.Context(), 500, 0)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		if len(convs[i].ID) >= len(id) && convs[i].ID[:len(id)] == id {
			return &convs[i], nil
		}
	}
	return nil, fmt.Errorf("no conversation matching %q", id)
}
