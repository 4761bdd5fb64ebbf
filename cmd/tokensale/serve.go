// cmd/tokensale/serve.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/token-sale/internal/lifecycle"
	"github.com/rovshanmuradov/token-sale/internal/server"
	"github.com/rovshanmuradov/token-sale/internal/utils/metrics"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the purchase HTTP endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Listen address (overrides listen_addr)",
			},
		},
		Action: func(c *cli.Context) error {
			rt, err := loadRuntime(c, false)
			if err != nil {
				return err
			}
			defer rt.close()

			if addr := c.String("listen"); addr != "" {
				rt.cfg.ListenAddr = addr
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			collector := metrics.NewCollector(registry)

			assembler, err := rt.assembler(collector)
			if err != nil {
				return err
			}

			srvCfg := server.Config{
				Addr:           rt.cfg.ListenAddr,
				RequestTimeout: rt.cfg.RequestTimeout,
				CORSOrigins:    rt.cfg.CORSOrigins,
			}
			if rt.cfg.MetricsEnabled {
				srvCfg.Gatherer = registry
			}
			srv := server.New(srvCfg, assembler, collector, rt.log)

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdown := lifecycle.NewShutdownHandler(rt.log.Logger, lifecycle.DefaultTimeout)
			shutdown.AddFunc("logger", func(context.Context) error { return rt.log.Sync() })
			shutdown.Add("http-server", srv)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(srv.Start)
			g.Go(func() error { return shutdown.Wait(gctx) })

			if err := g.Wait(); err != nil {
				rt.log.LogError("Server stopped with error", err, zap.String("addr", rt.cfg.ListenAddr))
				return err
			}
			return nil
		},
	}
}
