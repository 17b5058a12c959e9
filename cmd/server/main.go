package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"escape-rose/internal/config"
	"escape-rose/internal/db"
	"escape-rose/internal/game"
	"escape-rose/internal/server"
	"escape-rose/internal/session"
	"escape-rose/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	janitorInterval = time.Minute
	shutdownTimeout = 5 * time.Second
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.WithError(err).Warn("failed to load .env")
	}
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "escape-rose",
		Short:         "Multiplayer escape game server for La Plante Rose.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.NewViper(cmd.Flags())
			if err != nil {
				return err
			}
			cfg := config.Load(v)
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	config.RegisterFlags(serveCmd.Flags())
	root.AddCommand(serveCmd)
	root.CompletionOptions.HiddenDefaultCmd = true
	return root
}

func configureLogging(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("unknown log level, using info")
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
	if parsed < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

func openFeed(ctx context.Context, cfg config.Config) (store.Feed, func(), error) {
	if cfg.RedisURL == "" {
		return store.NewLocalFeed(), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	feed := store.NewRedisFeed(client, "rose:")
	if err := feed.Start(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("start redis feed: %w", err)
	}
	logrus.Info("change feed on redis")
	return feed, func() {
		_ = feed.Close()
		_ = client.Close()
	}, nil
}

func openStore(cfg config.Config, feed store.Feed) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logrus.Warn("DATABASE_URL is not set, rooms are kept in memory")
		return store.NewMemory(feed), nil
	}
	conn, err := db.Open(cfg.DatabaseURL, cfg.Pool())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store.NewPostgres(conn, feed), nil
}

func serve(ctx context.Context, cfg config.Config) error {
	configureLogging(cfg.LogLevel)

	feed, closeFeed, err := openFeed(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFeed()

	st, err := openStore(cfg, feed)
	if err != nil {
		return err
	}
	defer st.Close()

	repo := game.NewRepository(st, game.WithPlayerLimits(cfg.MinPlayers, cfg.MaxPlayers))
	if ttl := cfg.RoomTTL(); ttl > 0 {
		janitor, err := game.StartJanitor(ctx, repo, ttl, janitorInterval)
		if err != nil {
			return err
		}
		defer janitor.Shutdown()
	}

	cookies, err := session.NewCookieCodec(cfg.SessionSecret, session.DefaultTTL)
	if err != nil {
		return err
	}
	cookies.Secure = strings.HasPrefix(cfg.PublicURL, "https://")

	srv := server.New(repo, feed, cookies, cfg)
	httpServer := &http.Server{
		Addr:              cfg.Address(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logrus.WithField("addr", httpServer.Addr).Info("escape-rose server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	logrus.Info("shutting down")
	srv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
