package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"nvivas/backend/bingo-go-server/internal/config"
	"nvivas/backend/bingo-go-server/internal/hub"
	"nvivas/backend/bingo-go-server/internal/logger"
	"nvivas/backend/bingo-go-server/internal/room"
	"nvivas/backend/bingo-go-server/internal/server"
)

const releaseVersion = "0.1.0"

func newCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bingo-server",
		Short:   "Multiplayer bingo rooms over WebSocket.",
		Args:    cobra.NoArgs,
		Version: releaseVersion,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Load(cmd.Flags(), cfg); err != nil {
				return err
			}
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	config.RegisterFlags(cmd.Flags(), cfg)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("bingo-server v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger.Initialize(cfg.Level())

	mainHub := hub.NewHub(room.NewRegistry(cfg.PublicCapacity), hub.Options{
		Interval: cfg.DrawInterval,
	})

	hubDone := make(chan struct{})
	go func() {
		mainHub.Run(ctx)
		close(hubDone)
	}()

	logger.Info("Hub iniciado", logger.Fields{
		"drawInterval":   cfg.DrawInterval.String(),
		"publicCapacity": cfg.PublicCapacity,
	})

	err := server.New(ctx, cfg, mainHub, releaseVersion).Serve(ctx)

	// Cerrar el hub y esperar a que detenga los temporizadores
	mainHub.Close()
	<-hubDone

	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCmd(&config.Config{}).ExecuteContext(ctx); err != nil {
		stop()
		logger.Fatal("Server exited", logger.Fields{"error": err.Error()})
	}
}
