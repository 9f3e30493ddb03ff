package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aircheck/internal/capture"
	"aircheck/internal/daemon"
	"aircheck/internal/logging"
	"aircheck/internal/orchestrator"
	"aircheck/internal/processing"
	"aircheck/internal/registry"
	"aircheck/internal/services/ffmpeg"
	"aircheck/internal/services/tagging"
	"aircheck/internal/shipping"
	"aircheck/internal/shows"
	"aircheck/internal/transfer"
)

func newServeCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the recording daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := registry.Open(cfg)
			if err != nil {
				return fmt.Errorf("open job registry: %w", err)
			}

			catalog, err := shows.Load(cfg)
			if err != nil {
				store.Close()
				return fmt.Errorf("load show catalog: %w", err)
			}

			uploader, err := transfer.New(cfg)
			if err != nil {
				store.Close()
				return fmt.Errorf("configure transfer backend: %w", err)
			}

			ffmpegClient := ffmpeg.NewCLI(
				ffmpeg.WithBinary(cfg.FFmpegBinary()),
				ffmpeg.WithProbeBinary(cfg.FFprobeBinary()),
			)

			orc := orchestrator.New(cfg, store, catalog, logger)
			publish := func(ctx context.Context, job *registry.Job) {
				_ = store.Update(ctx, job)
			}
			orc.Configure(
				capture.NewHandler(cfg, catalog, ffmpegClient, logger, publish),
				processing.NewConverter(ffmpegClient, logger),
				processing.NewTagger(cfg, tagging.NewID3Tagger(), logger),
				shipping.NewHandler(cfg, uploader, logger),
			)

			d, err := daemon.New(cfg, store, orc, logger)
			if err != nil {
				store.Close()
				return err
			}
			defer d.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := d.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			d.Stop()
			return nil
		},
	}
}
