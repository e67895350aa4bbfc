package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bluenviron/rtspd"
	"github.com/bluenviron/rtspd/internal/conf"
	"github.com/bluenviron/rtspd/internal/logger"
	"github.com/bluenviron/rtspd/internal/metrics"
)

func serveCmd() *cobra.Command {
	var confPath string
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the RTSP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := conf.Load(confPath)
			if err != nil {
				return err
			}

			if address != "" {
				c.RTSPAddress = address
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, c)
		},
	}

	cmd.Flags().StringVarP(&confPath, "config", "c", "", "path to a YAML configuration file")
	cmd.Flags().StringVarP(&address, "address", "a", "", "RTSP listener address (overrides the configuration)")

	return cmd
}

func runServe(ctx context.Context, c *conf.Conf) error {
	log, err := logger.New(c.Log)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	m := metrics.New()

	s := &rtspd.Server{
		RTSPAddress:      c.RTSPAddress,
		WebSocketAddress: c.WebSocketAddress,
		ReadTimeout:      c.ReadTimeout,
		WriteTimeout:     c.WriteTimeout,
		MaxConnections:   c.MaxConnections,
		Log:              log,
		Metrics:          m,
	}

	err = s.Start()
	if err != nil {
		return err
	}

	log.Info("server started", zap.String("version", version))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.Wait()
		if gctx.Err() != nil {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		s.Close()
		return nil
	})

	if c.MetricsAddress != "" {
		hs := &http.Server{
			Addr:              c.MetricsAddress,
			Handler:           metricsMux(m),
			ReadHeaderTimeout: c.ReadTimeout,
		}

		g.Go(func() error {
			log.Info("metrics listener opened", zap.String("addr", c.MetricsAddress))

			err := hs.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})

		g.Go(func() error {
			<-gctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			return hs.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()

	log.Info("server stopped")

	return err
}

func metricsMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
