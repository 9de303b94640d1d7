package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/justestif/go-moodify/internal/features"
)

func newExtractCmd(c *cli) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "extract <wav>",
		Short: "Write the feature vector of a WAV recording as a feature file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			norm, err := features.ParseDCTNorm(c.cfg.Features.DCT)
			if err != nil {
				return fmt.Errorf("features.dct: %w", err)
			}

			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			samples, err := features.ReadWAV(in)
			if err != nil {
				return err
			}
			ex, err := features.NewExtractor(features.WithDCTNorm(norm)).Extract(samples)
			if err != nil {
				return err
			}
			if ex.ShortInput {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: only %d samples, zero-padded to %d\n", ex.SamplesRead, features.FrameSize)
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return features.WriteFeatureFile(w, ex.Vector)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
