package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justestif/go-moodify/internal/db"
	"github.com/justestif/go-moodify/internal/mood"
)

func newPlaylistCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playlist",
		Short: "Manage the song list of each mood",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <mood> <file>",
			Short: "Replace a mood's playlist with the songs in file, one per line",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				label, ok := mood.Parse(args[0])
				if !ok {
					return fmt.Errorf("unknown mood %q", args[0])
				}
				songs, err := readLines(args[1])
				if err != nil {
					return err
				}
				return c.withDB(cmd.Context(), func(ctx context.Context, database *db.DB) error {
					if err := database.Playlists().Replace(ctx, label, songs); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d songs\n", label, len(songs))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show <mood>",
			Short: "Print a mood's playlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				label, ok := mood.Parse(args[0])
				if !ok {
					return fmt.Errorf("unknown mood %q", args[0])
				}
				return c.withDB(cmd.Context(), func(ctx context.Context, database *db.DB) error {
					p, err := database.Playlists().Get(ctx, label)
					if err != nil {
						return err
					}
					for _, song := range p.Songs {
						fmt.Fprintln(cmd.OutOrStdout(), song)
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func (c *cli) withDB(ctx context.Context, fn func(context.Context, *db.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.cfg.Database.URL == "" {
		return fmt.Errorf("database.url is not configured")
	}
	database, err := db.New(ctx, c.cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Migrate(ctx); err != nil {
		return err
	}
	return fn(ctx, database)
}

// readLines returns the non-blank lines of a file.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
