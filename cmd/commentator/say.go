package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newSayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "say <text>...",
		Short: "Speak text through the configured voice and player",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger()

			opCtx, cancel := context.WithTimeout(cmd.Context(), cfg.TTSTimeout()+time.Minute)
			defer cancel()

			voice, err := newVoice(opCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer voice.Close()

			text := strings.Join(args, " ")
			start := time.Now()
			if err := voice.speaker.Speak(opCtx, text); err != nil {
				return fmt.Errorf("speak: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Spoke %d characters in %s\n", len(text), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
