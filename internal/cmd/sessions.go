package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conclave-ai/conclave/internal/config"
	"github.com/conclave-ai/conclave/internal/orchestrator"
	"github.com/conclave-ai/conclave/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored sessions",
	Long:  `Commands for listing, replaying, and deleting stored orchestration sessions.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Long: `List all stored sessions with their status:
- Session ID and mode
- Completion status
- Created and completed timestamps`,
	RunE: runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:     "show <session-id>",
	Aliases: []string{"replay"},
	Short:   "Show a stored session",
	Long: `Show a stored session by ID.

The persisted record is replayed through the same projection used for
live sessions, so the output matches what 'conclave run' printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsShowCmd.Flags().Bool("json", false, "print the full session snapshot as JSON")
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

func openStore() (store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.Store)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	summaries, err := st.List(context.Background())
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		cmd.Println("No stored sessions.")
		return nil
	}

	cmd.Printf("%-36s  %-20s  %-9s  %s\n", "ID", "MODE", "STATUS", "CREATED")
	for _, s := range summaries {
		cmd.Printf("%-36s  %-20s  %-9s  %s\n", s.ID, s.Mode, s.Status, s.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	persisted, err := st.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	state, err := orchestrator.ProjectFromPersisted(persisted)
	if err != nil {
		return fmt.Errorf("replay session %s: %w", args[0], err)
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	printSnapshot(cmd, state, jsonOut)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Deleted session %s\n", args[0])
	return nil
}
