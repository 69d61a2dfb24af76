package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/skypro1111/rxvoice/internal/media"
	"github.com/skypro1111/rxvoice/internal/metrics"
)

var (
	speakLang string
	speakText string
)

var speakCmd = &cobra.Command{
	Use:   "speak",
	Short: "Synthesize one audio reply and print its URL",
	Long: `Run the speech synthesis pipeline once with the configured
text-to-speech service, transcoder and artifact storage.

Example:
  rxvoice speak --lang te-IN --text "Take 2 tablets after food."`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSpeak(cmd.Context(), cmd)
	},
}

func init() {
	speakCmd.Flags().StringVarP(&speakLang, "lang", "l", "en-IN", "Locale-qualified language code")
	speakCmd.Flags().StringVarP(&speakText, "text", "t", "", "Text to speak")
	speakCmd.MarkFlagRequired("text")
}

func runSpeak(ctx context.Context, cmd *cobra.Command) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	m := metrics.NewMetrics(newRegistry())
	transcoder := media.NewTranscoder(cfg.Media.FFmpegPath, nil, logger, m)

	publisher, _, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}

	synthesizer, err := newSynthesizer(cfg, transcoder, publisher, logger, m)
	if err != nil {
		return err
	}

	url, err := synthesizer.Synthesize(ctx, speakText, speakLang)
	if err != nil {
		logger.Error("Synthesis failed", slog.String("error", err.Error()))
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}
