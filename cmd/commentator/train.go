package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-commentator/pkg/onboarding"
	"github.com/teslashibe/go-commentator/pkg/settings"
)

func newTrainCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Retrain the person group and wait for it to finish",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOnboarder(func(_ faceService, _ settings.Store, o *onboarding.Onboarder) error {
				opCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()

				start := time.Now()
				if err := o.Train(opCtx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Training finished in %s\n", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Maximum time to wait for training")
	return cmd
}
