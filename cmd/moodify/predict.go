package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justestif/go-moodify/internal/pipeline"
)

func newPredictCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify one input and print the mood decision as JSON",
	}

	fileCmd := func(use, short string, classify func(context.Context, *pipeline.Service, *os.File) (pipeline.Outcome, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <file>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				return c.predict(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context, svc *pipeline.Service) (pipeline.Outcome, error) {
					return classify(ctx, svc, f)
				})
			},
		}
	}

	cmd.AddCommand(
		fileCmd("image", "Classify a photo (JPEG, PNG, GIF, BMP or WebP)",
			func(ctx context.Context, svc *pipeline.Service, f *os.File) (pipeline.Outcome, error) {
				return svc.ClassifyImage(ctx, f)
			}),
		fileCmd("audio", "Classify a 16 kHz WAV recording",
			func(ctx context.Context, svc *pipeline.Service, f *os.File) (pipeline.Outcome, error) {
				return svc.ClassifyWAV(ctx, f)
			}),
		fileCmd("features", "Classify a comma-separated feature file",
			func(ctx context.Context, svc *pipeline.Service, f *os.File) (pipeline.Outcome, error) {
				return svc.ClassifyFeatures(ctx, f)
			}),
		&cobra.Command{
			Use:   "text <words...>",
			Short: "Resolve free text",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				text := strings.Join(args, " ")
				return c.predict(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context, svc *pipeline.Service) (pipeline.Outcome, error) {
					return svc.ClassifyText(ctx, text)
				})
			},
		},
	)
	return cmd
}

type predictOutput struct {
	Decision   any       `json:"decision"`
	Scores     []float32 `json:"scores,omitempty"`
	ShortInput bool      `json:"shortInput,omitempty"`
}

func (c *cli) predict(ctx context.Context, w io.Writer, classify func(context.Context, *pipeline.Service) (pipeline.Outcome, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := classify(ctx, a.svc)
	if err != nil {
		return fmt.Errorf("%s: %w", pipeline.UserMessage(err), err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(predictOutput{
		Decision:   out.Decision,
		Scores:     out.Scores,
		ShortInput: out.ShortInput,
	})
}
