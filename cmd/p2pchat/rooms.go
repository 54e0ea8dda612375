package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/p2pchat/internal/transcript"
)

func newRoomsCmd(global *globalFlags) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Print the public room directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadClient(global)
			if err != nil {
				return err
			}
			session, err := newSession(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			go session.Run(ctx)
			defer session.Close()

			if err := session.Connect(ctx); err != nil {
				return err
			}

			ticker := time.NewTicker(50 * time.Millisecond)
			defer ticker.Stop()
			for {
				snap, err := session.Snapshot(ctx)
				if err != nil {
					return err
				}
				if snap.DirectoryReceived {
					transcript.RenderDirectory(os.Stdout, snap.Directory)
					return nil
				}
				select {
				case <-ctx.Done():
					return errors.New("no directory received from " + cfg.ServerURL)
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for the server")
	return cmd
}
