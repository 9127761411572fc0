package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quiz-session-service/internal/config"
	"quiz-session-service/internal/infra/memory"
	"quiz-session-service/internal/infra/postgres"
)

// NewSeedCmd loads quiz definitions from a YAML catalog into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert quiz definitions from a YAML catalog into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if file == "" {
				file = cfg.Quiz.CatalogFile
			}
			quizzes, err := memory.LoadQuizFile(file)
			if err != nil {
				return err
			}

			logger := newLogger(cmd.OutOrStdout(), cfg)
			db := postgres.OpenDB(cfg.Postgres.URL)
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db, logger); err != nil {
				return err
			}
			if err := postgres.SeedQuizzes(cmd.Context(), db, quizzes); err != nil {
				return err
			}
			logger.Info("quizzes seeded", "count", len(quizzes), "file", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML catalog to load (defaults to quiz.catalog_file)")
	return cmd
}
