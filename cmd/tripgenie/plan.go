package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/tripgenie/internal/config"
	"github.com/dgallion1/tripgenie/internal/generate"
	"github.com/dgallion1/tripgenie/internal/pipeline"
	"github.com/dgallion1/tripgenie/internal/segment"
	"github.com/dgallion1/tripgenie/internal/store"
	"github.com/dgallion1/tripgenie/internal/travel"
)

type planOptions struct {
	req        travel.Request
	model      string
	save       bool
	promptOnly bool
}

func newPlanCmd(root *rootOptions) *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate a travel plan with Gemini and print its sections",
		Long: `Builds the travel prompt, asks Gemini for a plan, and prints the
segmented result. Requires GEMINI_API_KEY unless --prompt-only is set.

Example:
  tripgenie plan --from Boston --to Lisbon --start 2026-05-01 --end 2026-05-06 \
    --budget '$3000' --travelers 2 --interests "food, history"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.req.Source, "from", "", "departure location")
	f.StringVar(&opts.req.Destination, "to", "", "destination")
	f.StringVar(&opts.req.StartDate, "start", "", "start date (YYYY-MM-DD)")
	f.StringVar(&opts.req.EndDate, "end", "", "end date (YYYY-MM-DD)")
	f.StringVar(&opts.req.Budget, "budget", "", "trip budget")
	f.StringVar(&opts.req.Travelers, "travelers", "1", "number of travelers")
	f.StringVar(&opts.req.Interests, "interests", "", "interests, comma separated")
	f.StringVar(&opts.model, "model", "", "Gemini model (overrides GEMINI_MODEL)")
	f.BoolVar(&opts.save, "save", false, "store the plan in the plan database (DB_PATH)")
	f.BoolVar(&opts.promptOnly, "prompt-only", false, "print the prompt without calling Gemini")
	return cmd
}

func runPlan(cmd *cobra.Command, root *rootOptions, opts *planOptions) error {
	req := opts.req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}
	if opts.promptOnly {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), travel.BuildPrompt(req))
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	if opts.model != "" {
		cfg.GeminiModel = opts.model
	}
	log := root.logger(cmd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	gemini, err := generate.NewGeminiClient(ctx, generate.Options{
		APIKey:          cfg.GeminiAPIKey,
		Model:           cfg.GeminiModel,
		BaseURL:         cfg.GeminiBaseURL,
		Temperature:     float32(cfg.GeminiTemperature),
		TopK:            float32(cfg.GeminiTopK),
		TopP:            float32(cfg.GeminiTopP),
		MaxOutputTokens: int32(cfg.GeminiMaxOutputTokens),
		Timeout:         cfg.GenerateTimeout,
	})
	if err != nil {
		return err
	}
	defer gemini.Close()

	plans := &capturePlans{}
	if opts.save {
		st, err := store.Open(cfg.DBPath, cfg.PlanCacheSize)
		if err != nil {
			return err
		}
		defer st.Close()
		plans.next = st
	}

	// A forced job skips dedup so every run generates.
	job := pipeline.NewJob(req, true)
	pipeline.NewWorker(gemini, plans, nil, log, cfg.MaxRetries).Process(ctx, job)

	snap := job.Snapshot()
	if snap.Status != pipeline.StatusCompleted || plans.last == nil {
		return fmt.Errorf("plan generation %s: %s", snap.Status, strings.Join(snap.Progress.Errors, "; "))
	}
	if opts.save {
		fmt.Fprintf(cmd.ErrOrStderr(), "saved plan %s to %s\n", plans.last.ID, cfg.DBPath)
	}

	p := plans.last
	res := result{
		Title:    p.Request.Title(),
		Subtitle: p.Request.Summary(),
		Strategy: p.Strategy,
		Sections: p.Sections,
	}
	if res.Sections == nil {
		res.Sections = []segment.Section{}
	}

	w, closeOut, err := root.out(cmd)
	if err != nil {
		return err
	}
	if err := render(w, root.format, []result{res}); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

// capturePlans keeps the plan the worker produced and, when next is set,
// persists it there too.
type capturePlans struct {
	next *store.Store
	last *store.Plan
}

func (c *capturePlans) Put(ctx context.Context, p *store.Plan) error {
	if c.next != nil {
		if err := c.next.Put(ctx, p); err != nil {
			return err
		}
	}
	c.last = p
	return nil
}

func (c *capturePlans) FindByRequestHash(ctx context.Context, hash string) (*store.Plan, error) {
	if c.next == nil {
		return nil, nil
	}
	return c.next.FindByRequestHash(ctx, hash)
}
