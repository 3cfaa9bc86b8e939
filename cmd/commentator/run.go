package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-commentator/internal/config"
	"github.com/teslashibe/go-commentator/internal/log"
	"github.com/teslashibe/go-commentator/pkg/commentator"
	"github.com/teslashibe/go-commentator/pkg/comments"
	"github.com/teslashibe/go-commentator/pkg/facedetect"
	"github.com/teslashibe/go-commentator/pkg/onboarding"
	"github.com/teslashibe/go-commentator/pkg/presence"
	"github.com/teslashibe/go-commentator/pkg/sounds"
	"github.com/teslashibe/go-commentator/pkg/vision"
	"github.com/teslashibe/go-commentator/pkg/web"
)

const (
	setupTimeout    = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

type runOptions struct {
	idle  bool
	noWeb bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the camera and comment on the people in front of it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommentator(cmd.Context(), ctx, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.idle, "idle", false, "Stay idle until started from the web interface")
	cmd.Flags().BoolVar(&opts.noWeb, "no-web", false, "Do not serve the web interface")
	return cmd
}

func runCommentator(cmdCtx context.Context, ctx *commandContext, opts runOptions) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := ctx.logger()
	logger.Info("starting commentator", "config", ctx.configPath, "camera", cfg.Camera.Source, "tts", cfg.TTS.Providers)

	faces, err := newFaceClient(cfg, logger)
	if err != nil {
		return err
	}
	defer faces.Close()

	setupCtx, cancelSetup := context.WithTimeout(signalCtx, setupTimeout)
	err = faces.EnsurePersonGroup(setupCtx, cfg.Face.PersonGroupName)
	cancelSetup()
	if err != nil {
		return fmt.Errorf("ensure person group: %w", err)
	}

	store, err := openSettings(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	voice, err := newVoice(signalCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer voice.Close()

	library := sounds.New(cfg.Sounds.Dir, voice.player, logger)
	if err := library.Load(); err != nil {
		logger.Warn("sound cues unavailable", "dir", cfg.Sounds.Dir, "error", err)
	}

	lines := comments.DefaultLines
	if cfg.Comments.LinesFile != "" {
		if lines, err = comments.LoadLines(cfg.Comments.LinesFile); err != nil {
			return fmt.Errorf("load comment lines: %w", err)
		}
	}
	provider, err := comments.New(lines)
	if err != nil {
		return fmt.Errorf("comment lines: %w", err)
	}

	source := newVideoSource(cfg, logger)
	scorer := vision.NewFrameDiff()
	defer scorer.Close()

	gate, gateCloser, err := newFaceGate(cfg)
	if err != nil {
		return err
	}
	if gateCloser != nil {
		defer gateCloser.Close()
	}

	detector := presence.New(source, scorer,
		presence.WithThreshold(cfg.Presence.MotionThreshold),
		presence.WithHysteresis(cfg.Presence.EnterSamples, cfg.Presence.LeaveSamples),
		presence.WithLogger(logger),
	)
	periodic := facedetect.New[commentator.DetectedFace](
		facedetect.WithInterval(cfg.FaceDetectInterval()),
		facedetect.WithTimeout(cfg.FaceTimeout()),
		facedetect.WithLogger(logger),
	)

	c, err := commentator.New(commentator.Deps{
		Presence: detector,
		Faces:    periodic,
		Client:   faces,
		Settings: store,
		Speaker:  voice.speaker,
		Sounds:   library,
		Video:    source,
		Comments: provider,
		Gate:     gate,
	}, commentatorOptions(cfg, logger)...)
	if err != nil {
		return err
	}

	onboarder := onboarding.New(faces, store, onboarding.Config{Logger: logger})
	detach := onboarder.Attach(signalCtx, c)
	defer detach()

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(signalCtx) }()

	var server *web.Server
	webErr := make(chan error, 1)
	if cfg.Web.Enabled && !opts.noWeb {
		webOpts := []web.Option{web.WithLogger(logger)}
		if log.ParseLevel(cfg.Logging.Level) <= slog.LevelDebug {
			webOpts = append(webOpts, web.WithAccessLog(os.Stderr))
		}
		server, err = web.NewServer(web.Deps{
			Controller: c,
			Settings:   store,
			Remover:    onboarder,
			Frames:     source,
		}, webOpts...)
		if err != nil {
			cancel()
			<-runErr
			return err
		}
		go func() { webErr <- server.Serve(signalCtx, cfg.Web.Bind) }()
	}

	if !opts.idle {
		if err := c.Start(signalCtx); err != nil {
			logger.Error("start commentator", "error", err)
		}
	}

	select {
	case <-signalCtx.Done():
	case err := <-webErr:
		if err != nil {
			logger.Error("web interface failed", "error", err)
		}
		cancel()
	}

	return shutdown(c, server, runErr)
}

func shutdown(c *commentator.Commentator, server *web.Server, runErr <-chan error) error {
	log.Info("shutting down")

	if server != nil {
		server.Close()
	}

	select {
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case <-time.After(shutdownTimeout):
		log.Warn("commentator did not stop in time", "state", c.State())
	}
	return nil
}

func commentatorOptions(cfg *config.Config, logger *slog.Logger) []commentator.Option {
	return []commentator.Option{
		commentator.WithThrottleWait(cfg.ThrottleWait()),
		commentator.WithPostCommentDelay(cfg.PostCommentDelay()),
		commentator.WithCommentCooldown(cfg.CommentCooldown()),
		commentator.WithPresencePollInterval(cfg.PresencePollInterval()),
		commentator.WithConfidenceThreshold(cfg.Face.ConfidenceThreshold),
		commentator.WithAskTimeout(cfg.AskTimeout()),
		commentator.WithIdentifyTimeout(cfg.FaceTimeout()),
		commentator.WithDefaultName(cfg.Commentator.DefaultName),
		commentator.WithLogger(logger),
	}
}
