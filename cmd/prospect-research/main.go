package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mikeboe/prospect-research/pkg/clients"
	"github.com/mikeboe/prospect-research/pkg/config"
	"github.com/mikeboe/prospect-research/pkg/research"
)

var (
	prospectPath string
	outputPath   string
	depth        int
	breadth      int
	focus        string
	phases       string
	legacy       bool
)

func main() {
	// Progress goes to stderr so stdout stays valid JSON.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	// It's okay if .env doesn't exist, as long as env vars are set
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "prospect-research",
		Short: "Research a sales prospect",
		Long:  `prospect-research searches the web for a company, its decision-makers and its market, and writes a sales-ready research session as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd.Context())
		},
	}

	rootCmd.Flags().StringVarP(&prospectPath, "prospect", "p", "", "Path to the prospect JSON file (- for stdin)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the result to this file instead of stdout")
	rootCmd.Flags().IntVarP(&depth, "depth", "d", 0, "Recursion depth (1-3, default 2)")
	rootCmd.Flags().IntVarP(&breadth, "breadth", "b", 0, "Queries per level (1-5, default 3)")
	rootCmd.Flags().StringVar(&focus, "focus", "", "Research focus: sales, competitive or comprehensive")
	rootCmd.Flags().StringVar(&phases, "phases", "", "Comma-separated phases (company,contacts,contact_discovery,market)")
	rootCmd.Flags().BoolVar(&legacy, "legacy", false, "Write the sectioned legacy layout instead of the session")
	_ = rootCmd.MarkFlagRequired("prospect")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	prospect, err := readProspect(prospectPath)
	if err != nil {
		return err
	}

	cfg := config.Load()
	engine, err := clients.ResearchEngine(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	session, err := engine.Execute(ctx, prospect, researchConfig(), logProgress)
	if err != nil {
		return err
	}

	var result any = session
	if legacy {
		result = research.ToLegacy(session)
	}
	return writeJSON(outputPath, result)
}

func researchConfig() research.ResearchConfig {
	rc := research.ResearchConfig{
		Depth:   depth,
		Breadth: breadth,
		Focus:   research.Focus(focus),
	}
	if phases != "" {
		rc.Phases = []research.Phase{}
		for _, p := range strings.Split(phases, ",") {
			if p = strings.TrimSpace(p); p != "" {
				rc.Phases = append(rc.Phases, research.Phase(p))
			}
		}
	}
	return rc
}

func readProspect(path string) (research.ProspectContext, error) {
	var prospect research.ProspectContext

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return prospect, fmt.Errorf("failed to open prospect file: %w", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&prospect); err != nil {
		return prospect, fmt.Errorf("failed to decode prospect: %w", err)
	}
	if prospect.Name == "" {
		return prospect, fmt.Errorf("prospect name is required")
	}
	return prospect, nil
}

func logProgress(ev research.ProgressEvent) {
	attrs := []any{
		"state", ev.Phase,
		"depth", fmt.Sprintf("%d/%d", ev.CurrentDepth, ev.MaxDepth),
		"queries", ev.QueriesCompleted,
		"learnings", ev.LearningsFound,
	}
	if ev.ResearchPhase != "" {
		attrs = append(attrs, "phase", ev.ResearchPhase)
	}
	if ev.CurrentQuery != "" {
		attrs = append(attrs, "query", ev.CurrentQuery)
	}
	slog.Info(ev.Message, attrs...)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	slog.Info("Wrote research", "path", path)
	return nil
}
