package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jask/moneyql/internal/config"
	"github.com/jask/moneyql/internal/database"
	"github.com/jask/moneyql/internal/labeller"
	"github.com/jask/moneyql/internal/logger"
	"github.com/jask/moneyql/internal/render"
	"github.com/jask/moneyql/internal/service"
)

var (
	// Global flags
	dbPath   string
	logLevel string
	noColor  bool

	cfg config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "moneyql",
	Short: "Query and label your transactions with a small SQL-like language",
	Long: `moneyql keeps bank and card transactions in a local database file and
answers statements such as:

  IMPORT amex FROM 'july.csv';
  SELECT SUM(spending) WHERE date = 7;
  LABEL 12 grocery;
  EXPORT TO 'all.xlsx';`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env file is normal.
		_ = godotenv.Load()

		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		log = logger.New(cfg.Log.Level)
		cmd.SetContext(logger.WithContext(cmd.Context(), log))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (overrides database.path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")
}

// session is an open store with an executor bound to it.
type session struct {
	store *database.Store
	exec  *service.Executor
	out   render.Options
}

func openSession(ctx context.Context) (*session, error) {
	rules, err := labeller.LoadRules(cfg.Labels.RulesPath)
	if err != nil {
		return nil, err
	}
	engine, err := labeller.New(rules, labeller.Options{Similarity: cfg.Labels.Similarity})
	if err != nil {
		return nil, err
	}

	store, err := database.Open(ctx, cfg.Database.Path, database.Options{
		NoLock: !cfg.Database.Lock,
		Logger: &log,
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", store.Path()).Int("transactions", store.Len()).Int("rules", engine.Rules()).Msg("session opened")

	loc := cfg.Location()
	return &session{
		store: store,
		exec: &service.Executor{
			Store:      store,
			Labeller:   engine,
			Clock:      func() time.Time { return time.Now().In(loc) },
			SampleRows: cfg.Import.SampleRows,
		},
		out: render.Options{
			DateFormat:     cfg.UI.DateFormat,
			CurrencySymbol: cfg.UI.CurrencySymbol,
			Color:          !noColor && isatty.IsTerminal(os.Stdout.Fd()),
		},
	}, nil
}

func (s *session) Close() error { return s.store.Close() }

func (s *session) print(results []service.Result) {
	for _, r := range results {
		fmt.Println(render.Result(r, s.out))
	}
}
