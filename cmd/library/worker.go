package main

import (
	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the background job workers without the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			d := a.newDispatcher()
			d.Start(ctx)
			a.log.Info().Int("workers", a.cfg.Queue.Workers).Msg("workers started")
			<-ctx.Done()
			d.Wait()
			a.log.Info().Msg("workers stopped")
			return nil
		},
	}
}
