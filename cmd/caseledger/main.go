// Command caseledger manages legal case files: evidence intake with duplicate
// detection, timeline extraction and chain-of-custody verification.
package main

import (
	"context"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/myrjola/caseledger/internal/ai"
	"github.com/myrjola/caseledger/internal/dedupe"
	"github.com/myrjola/caseledger/internal/envstruct"
	"github.com/myrjola/caseledger/internal/errors"
	"github.com/myrjola/caseledger/internal/ingest"
	"github.com/myrjola/caseledger/internal/repositories"
	"github.com/myrjola/caseledger/internal/sqlite"
	"github.com/spf13/cobra"
	"log/slog"
	"os"
)

type config struct {
	SqliteURL    string `env:"CASELEDGER_DB" envDefault:"./caseledger.sqlite"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY" envDefault:""`
	GeminiAPIKey string `env:"GEMINI_API_KEY" envDefault:""`
	// Provider selects the primary extraction provider; the other configured
	// provider becomes the fallback.
	Provider string `env:"CASELEDGER_PROVIDER" envDefault:"gemini"`
}

// application bundles the wired dependencies for the subcommands.
type application struct {
	logger       *slog.Logger
	cases        *repositories.CaseRepository
	documents    *repositories.DocumentRepository
	events       *repositories.EventRepository
	orchestrator *ingest.Orchestrator
	close        func() error
}

var app *application

func init() {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	rootCmd.AddCommand(caseCmd)
	caseCmd.AddCommand(caseCreateCmd, caseListCmd)
	rootCmd.AddCommand(ingestCmd, pasteCmd, eventsCmd, resolveCmd, verifyCmd)
}

var rootCmd = &cobra.Command{
	Use:          "caseledger",
	Long:         `Evidence intake and timeline management for legal case files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		app, err = newApplication(cmd.Context())
		return err
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		if app == nil {
			return nil
		}
		return app.close()
	},
}

func newApplication(ctx context.Context) (*application, error) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	var cfg config
	if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
		return nil, errors.Wrap(err, "read configuration")
	}

	dbs, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return nil, errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}

	go dbs.StartOptimizer(ctx)

	documents, err := repositories.NewDocumentRepository(dbs, logger)
	if err != nil {
		_ = dbs.Close()
		return nil, err
	}
	cases := repositories.NewCaseRepository(dbs, logger)
	events := repositories.NewEventRepository(dbs, logger)

	client, closeProviders, err := newExtractionClient(ctx, cfg, logger)
	if err != nil {
		_ = dbs.Close()
		return nil, err
	}

	gate := dedupe.NewGate(documents, client, logger)

	return &application{
		logger:       logger,
		cases:        cases,
		documents:    documents,
		events:       events,
		orchestrator: ingest.NewOrchestrator(documents, events, gate, client, logger),
		close: func() error {
			return errors.Join(closeProviders(), dbs.Close())
		},
	}, nil
}

// newExtractionClient wires the configured providers. The selected provider
// runs first; the other one, when its key is present, serves as the single
// fallback hop.
func newExtractionClient(ctx context.Context, cfg config, logger *slog.Logger) (*ai.Client, func() error, error) {
	noop := func() error { return nil }

	var gemini *ai.GeminiProvider
	if cfg.GeminiAPIKey != "" {
		var err error
		if gemini, err = ai.NewGeminiProvider(ctx, cfg.GeminiAPIKey); err != nil {
			return nil, noop, err
		}
	}
	var openAI *ai.OpenAIProvider
	if cfg.OpenAIAPIKey != "" {
		openAI = ai.NewOpenAIProvider(cfg.OpenAIAPIKey)
	}

	closeProviders := noop
	if gemini != nil {
		closeProviders = gemini.Close
	}

	var primary, fallback ai.Provider
	switch cfg.Provider {
	case "openai":
		if openAI != nil {
			primary = openAI
		}
		if gemini != nil {
			fallback = gemini
		}
	case "gemini":
		if gemini != nil {
			primary = gemini
		}
		if openAI != nil {
			fallback = openAI
		}
	default:
		return nil, closeProviders, errors.New("unknown provider", slog.String("provider", cfg.Provider))
	}
	if primary == nil {
		// The selected provider has no key; promote the fallback so a single
		// configured key still works.
		primary, fallback = fallback, nil
	}

	return ai.NewClient(primary, fallback, logger), closeProviders, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
