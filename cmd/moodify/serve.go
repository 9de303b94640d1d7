package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justestif/go-moodify/internal/db"
	"github.com/justestif/go-moodify/internal/media"
	"github.com/justestif/go-moodify/internal/web"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, c.cfg, c.logger, withLoadRetry(defaultLoadRetry))
	if err != nil {
		return err
	}
	defer a.Close()

	deps := web.Deps{Logger: c.logger}

	if c.cfg.Database.URL != "" {
		database, err := db.New(ctx, c.cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return err
		}
		deps.Playlists = database.Playlists()
		deps.Likes = database.Likes()
		deps.Users = database.Users()
	} else {
		c.logger.Warn("no database configured, playlists and likes are disabled")
	}

	links, closeLinks, err := c.linkService(ctx)
	if err != nil {
		return err
	}
	defer closeLinks()
	if links != nil {
		deps.Links = links
	}

	sessions := web.NewSessionStore(a.svc, a.fallback, web.WithSessionLogger(c.logger))
	return web.NewServer(c.cfg.Server.Addr, sessions, deps).Run()
}

// linkService builds the song link lookup from the configured providers.
// It returns nil when no provider is configured.
func (c *cli) linkService(ctx context.Context) (*media.Service, func(), error) {
	noop := func() {}

	var chain media.Chain
	var names []string
	if key := c.cfg.Media.YouTubeKey; key != "" {
		chain = append(chain, media.NewYouTube(key))
		names = append(names, string(media.ProviderYouTube))
	}
	if id, secret := c.cfg.Media.SpotifyID, c.cfg.Media.SpotifySecret; id != "" && secret != "" {
		chain = append(chain, media.NewSpotify(ctx, id, secret))
		names = append(names, string(media.ProviderSpotify))
	}
	if len(chain) == 0 {
		c.logger.Info("no media provider configured, song links are disabled")
		return nil, noop, nil
	}

	var lookup media.Lookup = chain
	closeFn := noop
	if addr := c.cfg.Redis.Addr; addr != "" {
		store, err := media.ConnectRedis(ctx, addr)
		if err != nil {
			return nil, noop, err
		}
		lookup = media.NewCached(chain, store, "links", c.logger)
		closeFn = func() { _ = store.Close() }
	}

	c.logger.Info("song links enabled", zap.Strings("providers", names), zap.Bool("cached", c.cfg.Redis.Addr != ""))
	return media.NewService(lookup, media.WithConcurrency(c.cfg.Media.Concurrency)), closeFn, nil
}
