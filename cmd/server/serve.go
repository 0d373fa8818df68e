package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/draft-agent/internal/api"
	"github.com/example/draft-agent/internal/logging"
	"github.com/example/draft-agent/internal/orchestrator"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			log := logging.New(cfg.Log, serviceName)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := wire(ctx, cfg, log, true)
			if err != nil {
				log.Error("startup failed", map[string]interface{}{logging.FieldError: err})
				return err
			}
			defer a.Close()

			srv := &http.Server{
				Addr: cfg.Server.Addr,
				Handler: api.New(api.Deps{
					Runner:         a.runner,
					Sessions:       orchestrator.NewSessions(),
					Archive:        a.archive,
					Metrics:        a.metrics,
					Logger:         log.WithComponent("http"),
					AllowedOrigins: cfg.Server.AllowedOrigins,
					KeepAlive:      cfg.Server.KeepAlive,
				}).Routes(),
				BaseContext: func(_ net.Listener) context.Context { return ctx },
			}

			serverErrors := make(chan error, 1)
			go func() {
				log.Info("server listening", map[string]interface{}{"addr": srv.Addr})
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if !errors.Is(err, http.ErrServerClosed) {
					log.Error("server error", map[string]interface{}{logging.FieldError: err})
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down", map[string]interface{}{"timeout": cfg.Server.ShutdownTimeout.String()})
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warn("graceful shutdown incomplete", map[string]interface{}{logging.FieldError: err})
				return srv.Close()
			}
			log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}
