// Command moodify infers a mood from a photo, a voice recording or text and
// serves the mood experiences API.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justestif/go-moodify/internal/config"
	"github.com/justestif/go-moodify/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return newRootCmd().Execute()
}

// cli holds state shared by all subcommands.
type cli struct {
	configPath string
	cfg        config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "moodify",
		Short:         "Mood inference from face, voice and text",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ./moodify.yaml or ./config/moodify.yaml)")

	root.AddCommand(
		newServeCmd(c),
		newPredictCmd(c),
		newExtractCmd(c),
		newPlaylistCmd(c),
	)
	return root
}

func (c *cli) init() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	c.logger = logger
	return nil
}
