package cli

import (
	"fmt"

	"live-quiz-service/internal/config"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/infra/postgres"
	"live-quiz-service/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newImportCmd(flags *rootFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load quizzes from a YAML library file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

			quizzes, err := memory.ReadLibraryFile(file)
			if err != nil {
				return err
			}

			db, err := openBun(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if err := migrateDB(ctx, db); err != nil {
				return err
			}
			writer := postgres.NewQuizWriter(db)
			for _, quiz := range quizzes {
				if err := writer.Save(ctx, quiz); err != nil {
					return fmt.Errorf("import %q: %w", quiz.ID, err)
				}
				log.Info().Str("quiz", quiz.ID).Int("questions", len(quiz.Questions)).Msg("quiz imported")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a top-level quizzes list")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
