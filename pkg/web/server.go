// Package web serves the commentator's REST control surface and its
// websocket status and event streams.
package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-commentator/pkg/clock"
	"github.com/teslashibe/go-commentator/pkg/commentator"
	"github.com/teslashibe/go-commentator/pkg/event"
	"github.com/teslashibe/go-commentator/pkg/hub"
	"github.com/teslashibe/go-commentator/pkg/settings"
)

// Controller is the Commentator surface the server drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	AcceptCreatePerson(ctx context.Context, name string) error
	DeclineCreatePerson(ctx context.Context) error
	Status() commentator.Status
	Snapshot(ctx context.Context) (commentator.Snapshot, error)

	OnStatusChanged() *event.Dispatcher[commentator.Status]
	OnSpeak() *event.Dispatcher[commentator.SpeakEvent]
	OnAskToCreatePerson() *event.Dispatcher[commentator.AskToCreatePersonEvent]
	OnCreatePerson() *event.Dispatcher[commentator.CreatePersonEvent]
	OnTransition() *event.Dispatcher[commentator.TransitionEvent]
}

// PersonRemover deletes a person from the face service and settings.
type PersonRemover interface {
	Remove(ctx context.Context, personID string) error
}

// FrameSource supplies the current camera frame.
type FrameSource interface {
	CurrentFrame() ([]byte, error)
}

// Deps are the server's collaborators. Remover and Frames are optional.
type Deps struct {
	Controller Controller
	Settings   settings.Store
	Remover    PersonRemover
	Frames     FrameSource
}

// Server is the HTTP and websocket server.
type Server struct {
	app    *fiber.App
	deps   Deps
	clock  clock.Clock
	logger *slog.Logger

	statusHub *hub.Hub
	eventHub  *hub.Hub

	requestTimeout time.Duration
	accessLog      io.Writer
	unsubscribe    []func()
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock sets the clock used for event timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithRequestTimeout bounds calls into the Commentator.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.requestTimeout = d }
}

// WithAccessLog writes one line per request to w.
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) { s.accessLog = w }
}

// NewServer creates the server and subscribes to the Controller's events.
func NewServer(deps Deps, opts ...Option) (*Server, error) {
	if deps.Controller == nil || deps.Settings == nil {
		return nil, errors.New("web: controller and settings required")
	}

	s := &Server{
		deps:           deps,
		clock:          clock.Real(),
		logger:         slog.Default(),
		requestTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web")
	s.statusHub = hub.New("status", hub.WithLogger(s.logger), hub.WithReplayLast())
	s.eventHub = hub.New("events", hub.WithLogger(s.logger))

	app := fiber.New(fiber.Config{
		AppName:               "Commentator",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	app.Use(recover.New())
	if s.accessLog != nil {
		app.Use(logger.New(logger.Config{
			Output: s.accessLog,
			Format: "${time} ${status} ${method} ${path} ${latency}\n",
		}))
	}
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/snapshot", s.handleSnapshot)
	api.Get("/history", s.handleHistory)
	api.Post("/start", s.handleStart)
	api.Post("/stop", s.handleStop)
	api.Post("/ask/accept", s.handleAccept)
	api.Post("/ask/decline", s.handleDecline)
	api.Get("/persons", s.handleListPersons)
	api.Get("/persons/:id", s.handleGetPerson)
	api.Put("/persons/:id", s.handleUpdatePerson)
	api.Delete("/persons/:id", s.handleDeletePerson)
	api.Get("/frame", s.handleFrame)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.serveHub(s.statusHub)))
	app.Get("/ws/events", websocket.New(s.serveHub(s.eventHub)))

	s.app = app
	s.subscribe()
	return s, nil
}

func (s *Server) subscribe() {
	ctl := s.deps.Controller
	s.unsubscribe = []func(){
		ctl.OnStatusChanged().Subscribe(func(st commentator.Status) {
			if err := s.statusHub.BroadcastJSON(st); err != nil {
				s.logger.Warn("encode status", "error", err)
			}
		}),
		ctl.OnSpeak().Subscribe(func(ev commentator.SpeakEvent) {
			s.publish("speak", ev)
		}),
		ctl.OnAskToCreatePerson().Subscribe(func(ev commentator.AskToCreatePersonEvent) {
			s.publish("askToCreatePerson", askPayload{
				AskToCreatePersonEvent: ev,
				Image:                  ev.Face.ImageDataURL(),
			})
		}),
		ctl.OnCreatePerson().Subscribe(func(ev commentator.CreatePersonEvent) {
			s.publish("createPerson", ev)
		}),
		ctl.OnTransition().Subscribe(func(ev commentator.TransitionEvent) {
			s.publish("transition", ev)
		}),
	}
}

// askPayload adds the face image so the UI can show who is asked about.
type askPayload struct {
	commentator.AskToCreatePersonEvent
	Image string `json:"image"`
}

func (s *Server) publish(kind string, data any) {
	msg, err := hub.NewEnvelope(kind, data, s.clock.Now()).Encode()
	if err != nil {
		s.logger.Warn("encode event", "type", kind, "error", err)
		return
	}
	s.eventHub.Broadcast(msg)
}

func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		client, ok := hub.NewClient(h, conn)
		if !ok {
			_ = conn.Close()
			return
		}
		client.Run()
	}
}

// Publish sends an application event to the events stream.
func (s *Server) Publish(kind string, data any) {
	s.publish(kind, data)
}

// Serve runs the hubs and listens on addr until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	go s.statusHub.Run(ctx)
	go s.eventHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listener(ln) }()
	s.logger.Info("web server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Close unsubscribes from the Controller.
func (s *Server) Close() {
	for _, unsub := range s.unsubscribe {
		unsub()
	}
	s.unsubscribe = nil
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
