// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/krishna-gramener/adverse-events/internal/literature"
	"github.com/krishna-gramener/adverse-events/internal/query"
	"github.com/krishna-gramener/adverse-events/internal/render"
)

var literatureCmd = &cobra.Command{
	Use:   "literature",
	Short: "Search PubMed and fetch the matching articles",
	Long: `Literature runs only the PubMed stage: one esearch call for the term, then
one paced efetch call per returned id. It needs no endpoint settings.

The term uses PubMed boolean syntax with + for spaces, for example
"(ibuprofen)+AND+(nausea+OR+rash)+AND+(case+reports)".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		term, _ := cmd.Flags().GetString("term")
		if term == "" {
			return fmt.Errorf("--term is required")
		}
		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := render.ParseFormat(formatFlag)
		if err != nil {
			return err
		}

		searchURL := query.BuildSearchURL(appCfg.Literature.SearchURL, term, appCfg.Literature.MaxResults)
		logger.Debug("literature search", zap.String("url", searchURL))

		cfg := literature.ConfigFrom(appCfg.Literature, appCfg.HTTP)
		cfg.HTTPClient = httpClient()
		cfg.Logger = logger

		records, err := literature.New(cfg).Retrieve(cmd.Context(), searchURL)
		if err != nil {
			return err
		}
		return render.WriteLiterature(cmd.OutOrStdout(), records, format)
	},
}

func init() {
	literatureCmd.Flags().String("term", "", "PubMed search term")
	literatureCmd.Flags().String("format", "text", "output format: text, json or yaml")

	rootCmd.AddCommand(literatureCmd)
}
