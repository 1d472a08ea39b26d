// Package web serves the recognition dashboard: the current label, loop
// statistics, the annotation scene and an annotated camera preview.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-realitywrite/internal/log"
	"github.com/teslashibe/go-realitywrite/pkg/frame"
	"github.com/teslashibe/go-realitywrite/pkg/hub"
	"github.com/teslashibe/go-realitywrite/pkg/overlay"
	"github.com/teslashibe/go-realitywrite/pkg/recognition"
	"github.com/teslashibe/go-realitywrite/pkg/scene"
)

//go:embed static
var assets embed.FS

// DefaultCameraFPS caps the annotated preview rate.
const DefaultCameraFPS = 10

// Config holds dashboard settings.
type Config struct {
	Port      string
	CameraFPS float64
	Logger    *slog.Logger
}

// Deps are the pieces of the pipeline the dashboard reads from. Only State
// is required.
type Deps struct {
	State    *recognition.State
	Stats    func() recognition.Stats
	Frames   frame.Source
	Renderer *overlay.Renderer
	Scene    *scene.Scene
	Pose     func() scene.Pose // camera pose; identity when nil
}

// StateMessage is pushed on /ws/state whenever the label changes.
type StateMessage struct {
	Type   string               `json:"type"`
	State  recognition.Snapshot `json:"state"`
	Anchor *scene.Anchor        `json:"anchor,omitempty"`
}

// Server is the dashboard. It implements recognition.Presenter and
// recognition.ChangePresenter.
type Server struct {
	app    *fiber.App
	config Config
	deps   Deps
	logger *slog.Logger

	stateHub  *hub.Hub
	cameraHub *hub.Hub

	// publishState sends state messages; stateHub.BroadcastJSON by default.
	publishState func(v any) error

	lastSeq uint64
}

// NewServer builds the routes. Call Run to serve.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.State == nil {
		return nil, errors.New("web: state is required")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.CameraFPS <= 0 {
		cfg.CameraFPS = DefaultCameraFPS
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Component("web")
	}
	if deps.Scene == nil {
		deps.Scene = scene.New(time.Now().UnixNano())
	}
	if deps.Pose == nil {
		deps.Pose = scene.Identity
	}

	s := &Server{
		config:    cfg,
		deps:      deps,
		logger:    cfg.Logger,
		stateHub:  hub.New("state"),
		cameraHub: hub.New("camera"),
	}
	s.publishState = s.stateHub.BroadcastJSON

	app := fiber.New(fiber.Config{
		AppName:               "RealityWrite",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/stats", s.handleStats)
	api.Get("/scene", s.handleScene)
	api.Get("/health", s.handleHealth)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	app.Use("/", filesystem.New(filesystem.Config{
		Root:       http.FS(assets),
		PathPrefix: "static",
		Index:      "index.html",
	}))

	s.app = app
	return s, nil
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.stateHub.Run(ctx)
	go s.cameraHub.Run(ctx)
	if s.deps.Frames != nil && s.deps.Renderer != nil {
		go s.streamCamera(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "url", "http://localhost:"+s.config.Port)
		errCh <- s.app.Listen(":" + s.config.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web: listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		return s.app.ShutdownWithContext(shutdownCtx)
	}
}

// OnStateChanged moves the annotation to label and notifies dashboard
// clients. Only the label is known here, so the pushed state carries no
// confidence or version.
func (s *Server) OnStateChanged(label string) {
	s.present(recognition.Snapshot{
		Label:      label,
		Recognized: label != recognition.Sentinel,
	})
}

// OnChange is preferred by recognition.Dispatch. The pushed state is built
// from the Change itself, so queued changes keep their own metadata.
func (s *Server) OnChange(c recognition.Change) {
	s.present(recognition.Snapshot{
		Label:      c.Label,
		Recognized: c.Label != recognition.Sentinel,
		Confidence: c.Confidence,
		Version:    c.Version,
		UpdatedAt:  c.At,
	})
}

func (s *Server) present(snap recognition.Snapshot) {
	msg := StateMessage{Type: "state", State: snap}

	if snap.Recognized {
		anchor := s.deps.Scene.Refresh(s.deps.Pose(), snap.Label)
		msg.Anchor = &anchor
	} else {
		s.deps.Scene.Clear()
	}

	if err := s.publishState(msg); err != nil {
		s.logger.Warn("broadcast state", "error", err)
	}
}

// streamCamera pushes annotated frames while anyone is watching.
func (s *Server) streamCamera(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / s.config.CameraFPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.cameraHub.ClientCount() == 0 {
				continue
			}
			if err := s.pushCameraFrame(); err != nil {
				s.logger.Debug("camera frame", "error", err)
			}
		}
	}
}

func (s *Server) pushCameraFrame() error {
	f, ok := s.deps.Frames.CurrentFrame()
	// Unsequenced frames (static sources) are re-sent every tick.
	if !ok || (f.Seq != 0 && f.Seq == s.lastSeq) {
		return nil
	}
	s.lastSeq = f.Seq

	data, err := s.deps.Renderer.Render(f, s.deps.State.Label(), s.labelColor())
	if err != nil {
		return err
	}
	s.cameraHub.BroadcastBinary(data)
	return nil
}

func (s *Server) labelColor() color.RGBA {
	if anchors := s.deps.Scene.Anchors(); len(anchors) > 0 {
		return anchors[0].Color
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}
