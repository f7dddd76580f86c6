// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the adverse-events CLI.
//
// configure stores the three endpoint settings and checks the token
// exchange; assess runs the full pipeline on one PDF; literature runs only
// the PubMed stage for a given search term.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/krishna-gramener/adverse-events/internal/config"
	"github.com/krishna-gramener/adverse-events/internal/credentials"
	"github.com/krishna-gramener/adverse-events/internal/render"
	"github.com/krishna-gramener/adverse-events/internal/settings"
	"github.com/krishna-gramener/adverse-events/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// errReported marks an error whose banner has already been printed.
var errReported = errors.New("reported")

var (
	appCfg *types.Config
	logger = zap.NewNop()
)

// rootCmd is the base command for the adverse-events CLI.
var rootCmd = &cobra.Command{
	Use:   "adverse-events",
	Short: "Assess adverse drug events in clinical PDFs",
	Long: `adverse-events extracts symptoms, drugs and conditions from a clinical PDF,
searches PubMed for related case reports, and asks a generative model for a
per-symptom adverse event verdict grounded in the articles and a reference
guideline.

Run "adverse-events configure" once to store the token, OpenAI and Gemini
endpoint URLs, then "adverse-events assess report.pdf".`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		appCfg = cfg

		l, err := config.InitLogger(cfg.Log)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./adverse-events.yaml or ~/.config/adverse-events/adverse-events.yaml)")
}

// httpClient returns a client honoring http.timeout.
func httpClient() *http.Client {
	return &http.Client{Timeout: appCfg.HTTP.Timeout}
}

// newProvider opens the settings store and returns a credential provider
// over it. The caller closes the store.
func newProvider(cmd *cobra.Command) (*credentials.Provider, settings.Store, error) {
	store, err := settings.Open(appCfg.Store)
	if err != nil {
		return nil, nil, err
	}
	p := credentials.New(store, &formNotifier{cmd: cmd},
		credentials.WithLogger(logger),
		credentials.WithHTTPClient(httpClient()),
		credentials.WithCookie(appCfg.Auth.Cookie),
	)
	return p, store, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Sync()

	if err != nil {
		if !errors.Is(err, errReported) {
			render.Banner(os.Stderr, err.Error())
		}
		os.Exit(1)
	}
}
