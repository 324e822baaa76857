package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conclave-ai/conclave/internal/orchestrator"
)

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List available orchestration modes",
	RunE:  runModes,
}

var modeDescriptions = map[orchestrator.Mode]string{
	orchestrator.ModeElected:      "All participants answer, then vote; the most-voted answer wins.",
	orchestrator.ModeHierarchical: "A coordinator decomposes the prompt into subtasks for workers, then synthesizes.",
	orchestrator.ModeTournament:   "Answers face off in bracket matches judged pairwise until one remains.",
	orchestrator.ModeConsensus:    "Participants revise toward agreement across bounded rounds.",
	orchestrator.ModeDebated:      "Participants argue assigned pro/con stances; a synthesizer writes a balanced summary.",
	orchestrator.ModeCouncil:      "Participants discuss from assigned perspectives; a synthesizer combines the discussion.",
	orchestrator.ModeScattershot:  "One participant fans out across sampling variations for comparison.",
	orchestrator.ModeConfidence:   "Participants self-report confidence; low-confidence answers are excluded from synthesis.",
}

func init() {
	rootCmd.AddCommand(modesCmd)
}

func runModes(cmd *cobra.Command, args []string) error {
	for _, mode := range orchestrator.AllModes() {
		cmd.Printf("%-20s  %s\n", mode, modeDescriptions[mode])
	}
	return nil
}
