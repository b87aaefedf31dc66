package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/face-checkin/internal/log"
	"github.com/teslashibe/face-checkin/pkg/capture"
	"github.com/teslashibe/face-checkin/pkg/encode"
	"github.com/teslashibe/face-checkin/pkg/hub"
)

// CaptureResponse is returned by a successful capture.
type CaptureResponse struct {
	ResultID string  `json:"result_id"`
	Redirect string  `json:"redirect"`
	Score    float64 `json:"score"`
}

// ErrorResponse carries a user-facing message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.kiosk.Status())
}

func (s *Server) handleCapture(c *fiber.Ctx) error {
	out, err := s.kiosk.Trigger(c.UserContext())
	if err != nil {
		status, msg := captureError(err)
		return c.Status(status).JSON(ErrorResponse{Error: err.Error(), Message: msg})
	}

	return c.Status(fiber.StatusCreated).JSON(CaptureResponse{
		ResultID: out.ResultID,
		Redirect: "/result/" + out.ResultID,
		Score:    out.Face.Confidence,
	})
}

// captureError maps a trigger error to an HTTP status and the message
// shown to the visitor.
func captureError(err error) (int, string) {
	switch {
	case errors.Is(err, capture.ErrNoFace):
		return fiber.StatusUnprocessableEntity, "no face detected, please try again"
	case errors.Is(err, capture.ErrNotReady):
		return fiber.StatusServiceUnavailable, "face detection is still loading"
	case errors.Is(err, capture.ErrBusy):
		return fiber.StatusConflict, "already analyzing"
	case errors.Is(err, capture.ErrCaptured):
		return fiber.StatusConflict, "already checked in, start a new session"
	default:
		log.Warn("capture failed", "error", err)
		return fiber.StatusInternalServerError, "capture failed, please try again"
	}
}

func (s *Server) handleNewSession(c *fiber.Ctx) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session": s.kiosk.NewSession(),
	})
}

// handleResult always answers 200; a missing image is a view state, not an
// error.
func (s *Server) handleResult(c *fiber.Ctx) error {
	return c.JSON(s.kiosk.Result(c.Params("id")))
}

func (s *Server) handleResultImage(c *fiber.Ctx) error {
	view := s.kiosk.Result(c.Params("id"))
	if !view.HasImage {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not found",
			Message: "no image, please try again",
		})
	}

	raw, err := encode.Bytes(view.Image)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.Attachment(view.Filename)
	c.Type("jpg")
	return c.Send(raw)
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	s.serveHub(s.kiosk.StatusHub(), c)
}

func (s *Server) handleCameraWS(c *websocket.Conn) {
	s.serveHub(s.kiosk.CameraHub(), c)
}

func (s *Server) serveHub(h *hub.Hub, c *websocket.Conn) {
	hub.NewClient(h, c).Serve()
}
