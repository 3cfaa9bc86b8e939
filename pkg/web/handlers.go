package web

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-commentator/pkg/commentator"
	"github.com/teslashibe/go-commentator/pkg/fsm"
	"github.com/teslashibe/go-commentator/pkg/settings"
)

func (s *Server) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.requestTimeout)
}

// errorHandler maps domain errors to status codes. Error text is not
// echoed for internal errors.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"

	var fe *fiber.Error
	var invalid *fsm.InvalidTransitionError
	switch {
	case errors.As(err, &fe):
		code, msg = fe.Code, fe.Message
	case errors.As(err, &invalid):
		code, msg = fiber.StatusConflict, err.Error()
	case errors.Is(err, commentator.ErrNameRequired):
		code, msg = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, settings.ErrNotFound):
		code, msg = fiber.StatusNotFound, "person not found"
	case errors.Is(err, context.DeadlineExceeded):
		code, msg = fiber.StatusGatewayTimeout, "timed out"
	default:
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.deps.Controller.Status())
}

func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()
	snap, err := s.deps.Controller.Snapshot(ctx)
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()
	snap, err := s.deps.Controller.Snapshot(ctx)
	if err != nil {
		return err
	}
	return c.JSON(snap.History)
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()
	if err := s.deps.Controller.Start(ctx); err != nil {
		return err
	}
	return c.JSON(s.deps.Controller.Status())
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()
	if err := s.deps.Controller.Stop(ctx); err != nil {
		return err
	}
	return c.JSON(s.deps.Controller.Status())
}

type acceptRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAccept(c *fiber.Ctx) error {
	var req acceptRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	ctx, cancel := s.ctx(c)
	defer cancel()
	if err := s.deps.Controller.AcceptCreatePerson(ctx, req.Name); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleDecline(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()
	if err := s.deps.Controller.DeclineCreatePerson(ctx); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleListPersons(c *fiber.Ctx) error {
	st, err := s.deps.Settings.Load(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(st.List())
}

func (s *Server) handleGetPerson(c *fiber.Ctx) error {
	st, err := s.deps.Settings.Load(c.UserContext())
	if err != nil {
		return err
	}
	p, ok := st.Person(c.Params("id"))
	if !ok {
		return settings.ErrNotFound
	}
	return c.JSON(p)
}

type personRequest struct {
	Name     *string `json:"name"`
	Nickname *string `json:"nickname"`
	Notes    *string `json:"notes"`
}

// handleUpdatePerson creates or updates the settings of a person. Only the
// fields present in the body change.
func (s *Server) handleUpdatePerson(c *fiber.Ctx) error {
	var req personRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	id := c.Params("id")

	var out settings.Person
	err := settings.Update(c.UserContext(), s.deps.Settings, func(st *settings.Settings) error {
		p, ok := st.Person(id)
		if !ok {
			p = settings.Person{PersonID: id}
		}
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Nickname != nil {
			p.Nickname = strings.TrimSpace(*req.Nickname)
		}
		if req.Notes != nil {
			p.Notes = *req.Notes
		}
		if p.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name required")
		}
		st.SetPerson(p, s.clock.Now())
		out, _ = st.Person(id)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish("personUpdated", out)
	return c.JSON(out)
}

func (s *Server) handleDeletePerson(c *fiber.Ctx) error {
	id := c.Params("id")
	if s.deps.Remover != nil {
		if err := s.deps.Remover.Remove(c.UserContext(), id); err != nil {
			return err
		}
	} else {
		err := settings.Update(c.UserContext(), s.deps.Settings, func(st *settings.Settings) error {
			if !st.RemovePerson(id) {
				return settings.ErrNotFound
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	s.publish("personRemoved", fiber.Map{"personId": id})
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleFrame(c *fiber.Ctx) error {
	if s.deps.Frames == nil {
		return fiber.NewError(fiber.StatusNotFound, "no camera")
	}
	frame, err := s.deps.Frames.CurrentFrame()
	if err != nil || len(frame) == 0 {
		return fiber.NewError(fiber.StatusServiceUnavailable, "no frame yet")
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(frame)
}
