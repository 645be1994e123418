package ds

import (
	"context"
	"io"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/secluso/secluso/internal/transport"
)

const (
	commandFileName        = "command"
	configResponseFileName = "config_response"
)

func (s *Server) handleConfigCommandUpload(c *echo.Context, username string) error {
	return s.uploadConfigFile(c, username, commandFileName, "config")
}

func (s *Server) handleConfigCommandWait(c *echo.Context, username string) error {
	return s.waitConfigFile(c, username, commandFileName, "config")
}

func (s *Server) handleConfigResponseUpload(c *echo.Context, username string) error {
	return s.uploadConfigFile(c, username, configResponseFileName, "config_response")
}

func (s *Server) handleConfigResponseWait(c *echo.Context, username string) error {
	return s.waitConfigFile(c, username, configResponseFileName, "config_response")
}

func (s *Server) uploadConfigFile(c *echo.Context, username, filename, route string) error {
	camera := c.Param("camera")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxConfigUploadBytes+1))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if len(body) > maxConfigUploadBytes {
		return c.NoContent(http.StatusRequestEntityTooLarge)
	}

	store := s.storeFor(username)
	dir, err := store.GroupDir(camera)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if err := store.WriteAtomic(dir, filename, body); err != nil {
		return c.NoContent(http.StatusInternalServerError)
	}

	s.events.For(username).Signal(sseKey(route, camera, ""), []byte(transport.EncodeSSEPayload(body)))
	return c.NoContent(http.StatusOK)
}

func (s *Server) waitConfigFile(c *echo.Context, username, filename, route string) error {
	camera := c.Param("camera")
	store := s.storeFor(username)
	dir, err := store.GroupDir(camera)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	if data, err := store.Read(dir, filename); err == nil {
		return writeSSE(c, transport.EncodeSSEPayload(data))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), sseWaitTimeout)
	defer cancel()
	payload, err := s.events.For(username).Wait(ctx, sseKey(route, camera, ""))
	if err != nil {
		return writeSSE(c, "invalid")
	}
	return writeSSE(c, string(payload))
}
