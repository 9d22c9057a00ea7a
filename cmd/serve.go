package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rentmap/internal/config"
	"github.com/sells-group/rentmap/internal/heatmap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the heat map API",
	Long:  "Starts an HTTP server with /api/heatmap, /api/legend and cache endpoints for the map renderer.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		svc, closer, err := newService(ctx, cfg)
		if err != nil {
			return err
		}
		defer closer.Close() //nolint:errcheck

		srv := newServer(cfg, svc)
		return listen(ctx, srv)
	},
}

func newServer(c *config.Config, svc *heatmap.Service) *http.Server {
	cache := heatmap.NewCache(c.Server.CacheSize, time.Duration(c.Server.CacheTTLSecs)*time.Second)
	h := heatmap.NewHandler(svc, cache, heatmap.HandlerConfig{
		AllowedOrigins:  c.Server.AllowedOrigins,
		DefaultBedrooms: defaultBedrooms(c.Server.DefaultBedrooms),
		DefaultMode:     svc.DefaultMode(),
		BuildTimeout:    time.Duration(c.Server.BuildTimeoutSecs) * time.Second,
	})
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Server.Port),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// listen serves until ctx is canceled, then drains in-flight requests.
func listen(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
