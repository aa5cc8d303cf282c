package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/goliatone/go-router"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	exportrouter "github.com/goliatone/go-workflow-export/adapters/router"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document and export HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := setup(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		cfg := app.Config
		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
			fiberApp := fiber.New(fiber.Config{
				AppName:               "workflowpdf",
				DisableStartupMessage: true,
			})
			if cfg.Server.AccessLog {
				fiberApp.Use(logger.New(logger.Config{
					Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
				}))
			}
			return fiberApp
		})

		handler := exportrouter.NewHandler(exportrouter.Config{
			Service:  app.Service,
			BasePath: cfg.Server.BasePath,
			Logger:   app.Logger,
		})
		handler.RegisterRoutes(srv.Router())

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			app.Logger.Infof("listening on %s%s", addr, cfg.Server.BasePath)
			return srv.Serve(addr)
		})
		g.Go(func() error {
			return runCleanup(gctx, app, cfg.Storage.CleanupInterval)
		})
		g.Go(func() error {
			<-gctx.Done()
			app.Logger.Infof("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides server.addr")
	rootCmd.AddCommand(serveCmd)
}
