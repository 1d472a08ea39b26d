package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-realitywrite/pkg/frame"
	"github.com/teslashibe/go-realitywrite/pkg/hub"
	"github.com/teslashibe/go-realitywrite/pkg/recognition"
)

// StatsResponse is returned by /api/stats.
type StatsResponse struct {
	Loop    *recognition.Stats `json:"loop,omitempty"`
	Frames  *frame.Stats       `json:"frames,omitempty"`
	Clients map[string]int     `json:"clients"`
}

func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.deps.State.Snapshot())
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	resp := StatsResponse{
		Clients: map[string]int{
			s.stateHub.Name():  s.stateHub.ClientCount(),
			s.cameraHub.Name(): s.cameraHub.ClientCount(),
		},
	}
	if s.deps.Stats != nil {
		st := s.deps.Stats()
		resp.Loop = &st
	}
	if fs, ok := s.deps.Frames.(interface{ Stats() frame.Stats }); ok {
		st := fs.Stats()
		resp.Frames = &st
	}
	return c.JSON(resp)
}

func (s *Server) handleScene(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"anchors": s.deps.Scene.Anchors()})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleStateWS greets the client with the current state, then relays
// every change.
func (s *Server) handleStateWS(c *websocket.Conn) {
	greeting, err := json.Marshal(StateMessage{Type: "state", State: s.deps.State.Snapshot()})
	if err != nil {
		s.logger.Warn("encode greeting", "error", err)
		return
	}
	hub.NewClient(s.stateHub, c, hub.NewJSONMessage(greeting)).Run()
}

func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}
