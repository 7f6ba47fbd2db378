package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"bible-quiz-service/internal/ai"
	"bible-quiz-service/internal/config"
	"bible-quiz-service/internal/deck"
	"bible-quiz-service/internal/domain"
)

func geminiClient(cfg config.Config) *ai.Client {
	return ai.NewClient(ai.Options{
		APIKey:   cfg.Gemini.APIKey,
		BaseURL:  cfg.Gemini.BaseURL,
		Model:    cfg.Gemini.Model,
		TTSModel: cfg.Gemini.TTSModel,
		Timeout:  cfg.Gemini.Timeout,
	})
}

// NewCheckKeyCmd verifies that the configured Gemini key is accepted.
func NewCheckKeyCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check-key",
		Short: "Validate the configured Gemini API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := geminiClient(cfg).Validate(cmd.Context()); err != nil {
				return fmt.Errorf("api key rejected: %w", err)
			}
			log.Printf("api key ok (model %s)", cfg.Gemini.Model)
			return nil
		},
	}
}

// NewExportCmd generates a quiz with Gemini and writes it as a deck file,
// ready to be served offline through game.deck_path.
func NewExportCmd(configPath *string) *cobra.Command {
	quizCfg := domain.QuizConfig{
		Mode:       domain.TopicGeneral,
		Difficulty: domain.DifficultyMedium,
		Format:     domain.FormatMultipleChoice,
		Count:      10,
	}
	var (
		mode, difficulty, format string
		out                      string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Generate a quiz and write it as a YAML deck",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			quizCfg.Mode = domain.TopicMode(mode)
			quizCfg.Difficulty = domain.Difficulty(difficulty)
			quizCfg.Format = domain.QuizFormat(format)
			quizCfg.Normalize()
			if err := quizCfg.Validate(); err != nil {
				return err
			}

			quiz, err := geminiClient(cfg).Generate(cmd.Context(), quizCfg)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := deck.Write(w, quiz); err != nil {
				return err
			}
			if out != "" {
				log.Printf("wrote %d questions to %s", len(quiz.Questions), out)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&mode, "mode", string(quizCfg.Mode), "topic mode: general, book, history or specific")
	flags.StringVar(&quizCfg.Book, "book", "", "book name for book mode")
	flags.StringVar(&quizCfg.SpecificTopic, "topic", "", "topic for specific mode")
	flags.StringVar(&difficulty, "difficulty", string(quizCfg.Difficulty), "easy, medium or hard")
	flags.StringVar(&format, "format", string(quizCfg.Format), "multiple_choice, true_false or open_ended")
	flags.IntVar(&quizCfg.Count, "count", quizCfg.Count, "number of questions")
	flags.Float64Var(&quizCfg.Temperature, "temperature", domain.DefaultTemperature, "sampling temperature in [0,1]")
	flags.StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
