package main

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/genie-widget/internal/config"
	"github.com/zhouzirui/genie-widget/internal/service/answer"
	"github.com/zhouzirui/genie-widget/internal/tui"
	"github.com/zhouzirui/genie-widget/internal/widget"
)

func newTUICmd(opts *rootOptions) *cobra.Command {
	var (
		answerURL string
		logFile   string
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the chat widget in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return errors.Wrap(err, "load configuration")
			}
			if err := overrideAnswerURL(&cfg.Answer, answerURL); err != nil {
				return err
			}

			closer, err := initFileLogger(cfg.Log, logFile)
			if err != nil {
				return err
			}
			defer closer.Close()

			client := answer.NewClient(cfg.Answer)
			log.Info().Str("answer_endpoint", client.Endpoint()).Msg("starting terminal widget")

			w := widget.New(client, cfg.Widget, widget.WithVisible(true))
			err = tui.Run(cmd.Context(), w, client)
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&answerURL, "answer-url", "", "Answer Service base URL (overrides ANSWER_BASE_URL)")
	cmd.Flags().StringVar(&logFile, "log-file", "genie-widget.log", "file that receives logs while the UI runs")
	return cmd
}

// overrideAnswerURL applies the --answer-url flag with the checks ANSWER_BASE_URL
// gets. An empty value keeps the configured URL.
func overrideAnswerURL(cfg *config.AnswerConfig, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if err := config.ValidateBaseURL("--answer-url", raw); err != nil {
		return err
	}
	cfg.BaseURL = raw
	return nil
}
