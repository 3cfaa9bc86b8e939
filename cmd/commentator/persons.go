package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-commentator/internal/config"
	"github.com/teslashibe/go-commentator/pkg/commentator"
	"github.com/teslashibe/go-commentator/pkg/faceapi"
	"github.com/teslashibe/go-commentator/pkg/onboarding"
	"github.com/teslashibe/go-commentator/pkg/settings"
)

const personsTimeout = 2 * time.Minute

// faceService is the face service surface the maintenance commands use.
type faceService interface {
	onboarding.FaceService
	DetectFaces(ctx context.Context, image []byte) ([]faceapi.DetectedFace, error)
	ListPersons(ctx context.Context) ([]faceapi.Person, error)
}

// openFaceService is replaced in tests.
var openFaceService = func(cfg *config.Config, logger *slog.Logger) (faceService, error) {
	return newFaceClient(cfg, logger)
}

// withOnboarder opens the face service and settings store for one command.
func (c *commandContext) withOnboarder(fn func(faces faceService, store settings.Store, o *onboarding.Onboarder) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := c.logger()

	faces, err := openFaceService(cfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := faces.(io.Closer); ok {
		defer closer.Close()
	}

	store, err := openSettings(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(faces, store, onboarding.New(faces, store, onboarding.Config{Logger: logger}))
}

func newPersonsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "persons",
		Aliases: []string{"person"},
		Short:   "Manage known persons",
	}
	cmd.AddCommand(newPersonsListCommand(ctx))
	cmd.AddCommand(newPersonsAddCommand(ctx))
	cmd.AddCommand(newPersonsRemoveCommand(ctx))
	cmd.AddCommand(newPersonsRenameCommand(ctx))
	return cmd
}

func newPersonsListCommand(ctx *commandContext) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persons with stored names",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOnboarder(func(faces faceService, store settings.Store, _ *onboarding.Onboarder) error {
				opCtx, cancel := context.WithTimeout(cmd.Context(), personsTimeout)
				defer cancel()

				s, err := store.Load(opCtx)
				if err != nil {
					return fmt.Errorf("load settings: %w", err)
				}

				known := make(map[string]bool)
				if remote {
					persons, err := faces.ListPersons(opCtx)
					if err != nil {
						return fmt.Errorf("list persons: %w", err)
					}
					for _, p := range persons {
						known[p.PersonID] = true
					}
				}

				out := cmd.OutOrStdout()
				list := s.List()
				if len(list) == 0 {
					fmt.Fprintln(out, "No persons stored")
					return nil
				}

				headers := []string{"ID", "Name", "Nickname", "Updated"}
				if remote {
					headers = append(headers, "In Service")
				}
				rows := make([][]string, 0, len(list))
				for _, p := range list {
					row := []string{p.PersonID, p.Name, p.Nickname, formatTime(p.UpdatedAt)}
					if remote {
						row = append(row, yesNo(known[p.PersonID]))
					}
					rows = append(rows, row)
				}
				fmt.Fprintln(out, renderTable(headers, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Check each person against the face service")
	return cmd
}

func newPersonsAddCommand(ctx *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <image>",
		Short: "Create a person from a photo with exactly one face",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return errors.New("--name is required")
			}
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			return ctx.withOnboarder(func(faces faceService, _ settings.Store, o *onboarding.Onboarder) error {
				opCtx, cancel := context.WithTimeout(cmd.Context(), personsTimeout)
				defer cancel()

				detected, err := faces.DetectFaces(opCtx, image)
				if err != nil {
					return fmt.Errorf("detect faces: %w", err)
				}
				switch len(detected) {
				case 0:
					return fmt.Errorf("no face found in %s", args[0])
				case 1:
				default:
					return fmt.Errorf("%d faces found in %s; use a photo of one person", len(detected), args[0])
				}

				person, err := o.Create(opCtx, commentator.DetectedFace{
					FaceID:    detected[0].FaceID,
					Image:     image,
					Detection: detected[0],
				}, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", person.Name(), person.PersonID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name to address the person by")
	return cmd
}

func newPersonsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <person-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a person from the face service and settings",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOnboarder(func(_ faceService, _ settings.Store, o *onboarding.Onboarder) error {
				opCtx, cancel := context.WithTimeout(cmd.Context(), personsTimeout)
				defer cancel()

				if err := o.Remove(opCtx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newPersonsRenameCommand(ctx *commandContext) *cobra.Command {
	var nickname string

	cmd := &cobra.Command{
		Use:   "rename <person-id> <name>",
		Short: "Change the stored name of a person",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOnboarder(func(_ faceService, store settings.Store, _ *onboarding.Onboarder) error {
				opCtx, cancel := context.WithTimeout(cmd.Context(), personsTimeout)
				defer cancel()

				err := settings.Update(opCtx, store, func(s *settings.Settings) error {
					p, ok := s.Person(args[0])
					if !ok {
						return settings.ErrNotFound
					}
					p.Name = strings.TrimSpace(args[1])
					if cmd.Flags().Changed("nickname") {
						p.Nickname = strings.TrimSpace(nickname)
					}
					s.SetPerson(p, time.Now())
					return nil
				})
				if errors.Is(err, settings.ErrNotFound) {
					return fmt.Errorf("person %s has no stored settings", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", args[0], strings.TrimSpace(args[1]))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&nickname, "nickname", "", "Nickname used when speaking")
	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
