package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/genie-widget/internal/config"
	"github.com/zhouzirui/genie-widget/internal/handler"
	"github.com/zhouzirui/genie-widget/internal/service/answer"
	"github.com/zhouzirui/genie-widget/internal/service/chat"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the web widget page and its websocket sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return errors.Wrap(err, "load configuration")
			}
			if err := initLogger(cfg.Log, cmd.ErrOrStderr()); err != nil {
				return err
			}

			client := answer.NewClient(cfg.Answer)
			chatService := chat.NewService()
			router := handler.NewRouter(client, chatService, cfg.Widget)

			log.Info().
				Str("answer_endpoint", client.Endpoint()).
				Dur("answer_timeout", cfg.Answer.Timeout).
				Bool("serialize_sends", cfg.Widget.SerializeSends).
				Msg("answer service configured")

			if err := startServer(cmd.Context(), cfg.Server, router); err != nil {
				log.Error().Err(err).Msg("server error")
				return err
			}
			return nil
		},
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("genie widget listening")
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		log.Info().Msg("server stopped")
		return nil
	})

	return g.Wait()
}
