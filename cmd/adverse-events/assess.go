// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/krishna-gramener/adverse-events/internal/causality"
	"github.com/krishna-gramener/adverse-events/internal/extract"
	"github.com/krishna-gramener/adverse-events/internal/gemini"
	"github.com/krishna-gramener/adverse-events/internal/guideline"
	"github.com/krishna-gramener/adverse-events/internal/literature"
	"github.com/krishna-gramener/adverse-events/internal/pipeline"
	"github.com/krishna-gramener/adverse-events/internal/query"
	"github.com/krishna-gramener/adverse-events/internal/render"
)

var assessCmd = &cobra.Command{
	Use:   "assess <file.pdf>",
	Short: "Run the adverse event assessment on a clinical PDF",
	Long: `Assess extracts entities from the PDF, synthesizes a PubMed search, fetches
the matching case reports and asks for a per-symptom causality verdict.

In text format each section is printed as soon as its stage finishes. JSON
and YAML print one report at the end, including the step statuses of a
failed run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := render.ParseFormat(formatFlag)
		if err != nil {
			return err
		}

		doc, err := extract.FromFile(args[0])
		if err != nil {
			return err
		}
		if err := extract.ValidateDocument(doc); err != nil {
			return err
		}

		provider, store, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		sess, err := provider.Load(ctx)
		if err != nil {
			return err
		}

		guidelineText, err := guideline.Load(ctx, guidelineSource(cmd, appCfg.Guideline.Source), httpClient(), logger)
		if err != nil {
			return err
		}

		client := httpClient()
		gem := &gemini.Client{UserAgent: appCfg.HTTP.UserAgent, HTTP: client, Log: logger}

		litCfg := literature.ConfigFrom(appCfg.Literature, appCfg.HTTP)
		litCfg.HTTPClient = client
		litCfg.Logger = logger

		stages := pipeline.Stages{
			Extractor: extract.NewForSession(sess, gem, logger),
			Query: query.NewForSession(sess, query.Config{
				Model:      appCfg.LLM.QueryModel,
				SearchURL:  appCfg.Literature.SearchURL,
				MaxResults: appCfg.Literature.MaxResults,
				HTTPClient: client,
				Logger:     logger,
			}),
			Literature: literature.New(litCfg),
			Causality:  causality.NewForSession(sess, gem, guidelineText, logger),
		}

		sink := &render.Sink{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr(), Format: format}
		opts := []pipeline.Option{pipeline.WithSink(sink), pipeline.WithLogger(logger)}
		if showProgress, _ := cmd.Flags().GetBool("progress"); showProgress {
			verbose, _ := cmd.Flags().GetBool("instructions")
			opts = append(opts, pipeline.WithObserver(&render.ProgressPrinter{W: cmd.ErrOrStderr(), Verbose: verbose}))
		}

		snap, runErr := pipeline.New(stages, opts...).Run(ctx, doc)
		if format != render.FormatText {
			if err := render.Write(cmd.OutOrStdout(), snap, format); err != nil {
				return err
			}
		}
		if runErr != nil {
			return errReported
		}
		return nil
	},
}

// guidelineSource returns --guideline when given, else configured. With
// neither set it prints a warning on stderr.
func guidelineSource(cmd *cobra.Command, configured string) string {
	source := configured
	if cmd.Flags().Changed("guideline") {
		source, _ = cmd.Flags().GetString("guideline")
	}
	if strings.TrimSpace(source) == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: no guideline configured (set guideline.source or pass --guideline); the causality assessment runs without one.")
	}
	return source
}

func init() {
	assessCmd.Flags().String("format", "text", "output format: text, json or yaml")
	assessCmd.Flags().String("guideline", "", "guideline file or URL (overrides guideline.source)")
	assessCmd.Flags().Bool("progress", false, "print step progress to stderr")
	assessCmd.Flags().Bool("instructions", false, "with --progress, also print render instructions")

	rootCmd.AddCommand(assessCmd)
}
