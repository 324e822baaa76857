package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/conclave-ai/conclave/internal/config"
	"github.com/conclave-ai/conclave/internal/event"
	"github.com/conclave-ai/conclave/internal/invoke"
	"github.com/conclave-ai/conclave/internal/logging"
	"github.com/conclave-ai/conclave/internal/metrics"
	"github.com/conclave-ai/conclave/internal/orchestrator"
	"github.com/conclave-ai/conclave/internal/roster"
	"github.com/conclave-ai/conclave/internal/store"
	"github.com/conclave-ai/conclave/internal/usage"
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run an orchestration session",
	Long: `Run one orchestration session: fan the prompt out to every participant
in the roster under the selected mode and print the aggregated result.

The prompt is read from the argument, or from stdin when omitted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringP("mode", "m", "elected", "orchestration mode (see 'conclave modes')")
	runCmd.Flags().StringP("roster", "r", "roster.yaml", "participant roster file")
	runCmd.Flags().Bool("json", false, "print the full session snapshot as JSON")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	modeFlag, _ := cmd.Flags().GetString("mode")
	mode, err := orchestrator.ParseMode(modeFlag)
	if err != nil {
		return err
	}

	prompt, err := readPrompt(args)
	if err != nil {
		return err
	}

	rosterPath, _ := cmd.Flags().GetString("roster")
	r, err := roster.Load(rosterPath)
	if err != nil {
		return err
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		wd, _ := os.Getwd()
		sessionDir := cfg.Paths.ResolveSessionDir(wd)
		if err := os.MkdirAll(sessionDir, 0o755); err != nil {
			return err
		}
		logger, err = logging.NewLogger(sessionDir, cfg.Logging.Level)
		if err != nil {
			return err
		}
		defer logger.Close()
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	recorder := metrics.Recorder(metrics.NoopRecorder{})
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		promRecorder, err := metrics.NewPrometheusRecorder(registry)
		if err != nil {
			return err
		}
		recorder = promRecorder
		srv, err := metrics.StartServer(cfg.Metrics.ListenAddr, registry)
		if err != nil {
			return err
		}
		defer func() { _ = metrics.StopServer(context.Background(), srv) }()
	}

	invoker, err := invoke.NewCommandInvoker(invoke.CommandConfig{
		Command:   cfg.Invoker.Command,
		Args:      cfg.Invoker.Args,
		ModelFlag: cfg.Invoker.ModelFlag,
	})
	if err != nil {
		return err
	}

	bus := event.NewBus()
	jsonOut, _ := cmd.Flags().GetBool("json")
	if !jsonOut {
		subscribeProgress(bus, cmd)
	}

	engine := orchestrator.New(invoker, cfg.Modes,
		orchestrator.WithBus(bus),
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(recorder),
		orchestrator.WithStore(st),
		orchestrator.WithMaxInFlight(cfg.Fanout.MaxInFlight),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := engine.Run(ctx, mode, prompt, r.Descriptors())
	if session != nil {
		printSnapshot(cmd, orchestrator.Project(session), jsonOut)
	}
	return err
}

func readPrompt(args []string) (string, error) {
	if len(args) == 1 && args[0] != "" {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("empty prompt")
	}
	return prompt, nil
}

// subscribeProgress prints live progress as rounds settle.
func subscribeProgress(bus *event.Bus, cmd *cobra.Command) {
	bus.Subscribe("session.phase_changed", func(e event.Event) {
		pc := e.(event.PhaseChangedEvent)
		cmd.PrintErrf("phase: %s\n", pc.ToPhase)
	})
	bus.Subscribe("round.partial_result", func(e event.Event) {
		pr := e.(event.PartialResultEvent)
		mark := "ok"
		if !pr.Succeeded {
			mark = "failed"
		}
		cmd.PrintErrf("  [%d/%d] %s: %s\n", pr.Completed, pr.Total, pr.InstanceID, mark)
	})
}

func printSnapshot(cmd *cobra.Command, state orchestrator.LiveState, jsonOut bool) {
	if jsonOut {
		data, err := json.MarshalIndent(state, "", "  ")
		if err == nil {
			cmd.Println(string(data))
		}
		return
	}

	cmd.Printf("session:  %s\n", state.SessionID)
	cmd.Printf("mode:     %s\n", state.Mode)
	cmd.Printf("status:   %s\n", state.Status)
	if state.FailureReason != "" {
		cmd.Printf("failure:  %s\n", state.FailureReason)
	}
	cmd.Printf("tokens:   %d in / %d out\n", state.AggregateUsage.InputTokens, state.AggregateUsage.OutputTokens)
	cmd.Printf("cost:     %s\n", usage.FormatUSD(state.AggregateUsage.CostMicrocents))

	switch view := state.View.(type) {
	case *orchestrator.ElectedView:
		cmd.Printf("winner:   %s\n", view.Winner)
		for _, c := range view.Candidates {
			if c.InstanceID == view.Winner && c.Succeeded() {
				cmd.Printf("\n%s\n", c.Data)
			}
		}
	case *orchestrator.HierarchicalView:
		cmd.Printf("subtasks: %d complete, %d failed\n", view.Subtasks.Complete, view.Subtasks.Failed)
		if view.Synthesis != "" {
			cmd.Printf("\n%s\n", view.Synthesis)
		}
	case *orchestrator.TournamentView:
		cmd.Printf("winner:   %s\n", view.Winner)
		for _, r := range view.Responses {
			if r.InstanceID == view.Winner && r.Succeeded() {
				cmd.Printf("\n%s\n", r.Data)
			}
		}
	case *orchestrator.ConsensusView:
		cmd.Printf("rounds:   %d (agreement %.2f)\n", view.RoundsExecuted, view.FinalAgreement)
		for _, out := range view.FinalAnswers {
			if out.Succeeded() {
				cmd.Printf("\n[%s]\n%s\n", out.InstanceID, out.Data)
			}
		}
	case *orchestrator.DebatedView:
		if view.Summary != "" {
			cmd.Printf("\n%s\n", view.Summary)
		}
	case *orchestrator.CouncilView:
		if view.Synthesis != "" {
			cmd.Printf("\n%s\n", view.Synthesis)
		}
	case *orchestrator.ScattershotView:
		for _, v := range view.Variations {
			if v.Outcome.Succeeded() {
				cmd.Printf("\n[%s: temp %.2f, top-p %.2f]\n%s\n", v.VariationID, v.Temperature, v.TopP, v.Outcome.Data)
			}
		}
	case *orchestrator.ConfidenceView:
		if view.Synthesis != "" {
			cmd.Printf("\n%s\n", view.Synthesis)
		}
	}
}
