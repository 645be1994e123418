package ds

import (
	"context"
	"io"
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/secluso/secluso/internal/transport"
)

// handleLivestreamStartSignal is POST /livestream/<camera>: it wakes
// any subscriber waiting on the matching GET, carrying no payload of
// its own — the epoch is supplied by the first chunk upload's commit.
func (s *Server) handleLivestreamStartSignal(c *echo.Context, username string) error {
	camera := c.Param("camera")
	s.events.For(username).Signal(sseKey("livestream_start", camera, ""), []byte("1"))
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleLivestreamStartWait(c *echo.Context, username string) error {
	camera := c.Param("camera")
	ctx, cancel := context.WithTimeout(c.Request().Context(), sseWaitTimeout)
	defer cancel()

	_, err := s.events.For(username).Wait(ctx, sseKey("livestream_start", camera, ""))
	if err != nil {
		return writeSSE(c, "invalid")
	}
	return writeSSE(c, "1")
}

func (s *Server) handleLivestreamChunkUpload(c *echo.Context, username string) error {
	camera := c.Param("camera")
	n := c.Param("n")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxLivestreamUploadBytes+1))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if len(body) > maxLivestreamUploadBytes {
		return c.NoContent(http.StatusRequestEntityTooLarge)
	}

	store := s.storeFor(username)
	dir, err := store.GroupDir(camera)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	if n != commitChunkName && store.Exists(dir, livestreamEndMarker) {
		if err := store.Remove(dir, livestreamEndMarker); err != nil {
			return c.NoContent(http.StatusInternalServerError)
		}
		if err := store.WriteAtomic(dir, n, body); err != nil {
			return c.NoContent(http.StatusInternalServerError)
		}
		s.events.For(username).Signal(sseKey("livestream_chunk", camera, n), []byte(transport.EncodeSSEPayload(body)))
		return c.JSON(http.StatusOK, map[string]int{"pending": 0})
	}

	pending, err := store.CountPending(dir, map[string]bool{livestreamEndMarker: true})
	if err != nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	if pending >= maxPendingLivestreamFiles {
		return c.NoContent(http.StatusInsufficientStorage)
	}

	if err := store.WriteAtomic(dir, n, body); err != nil {
		return c.NoContent(http.StatusInternalServerError)
	}

	s.events.For(username).Signal(sseKey("livestream_chunk", camera, n), []byte(transport.EncodeSSEPayload(body)))
	return c.JSON(http.StatusOK, map[string]int{"pending": pending + 1})
}

func (s *Server) handleLivestreamChunkFetch(c *echo.Context, username string) error {
	camera := c.Param("camera")
	n := c.Param("n")
	if _, err := strconv.ParseUint(n, 10, 64); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	store := s.storeFor(username)
	dir, err := store.GroupDir(camera)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	if data, err := store.Read(dir, n); err == nil {
		return writeSSE(c, transport.EncodeSSEPayload(data))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), sseWaitTimeout)
	defer cancel()
	payload, err := s.events.For(username).Wait(ctx, sseKey("livestream_chunk", camera, n))
	if err != nil {
		return writeSSE(c, "invalid")
	}
	return writeSSE(c, string(payload))
}

func (s *Server) handleLivestreamEnd(c *echo.Context, username string) error {
	camera := c.Param("camera")
	store := s.storeFor(username)
	dir, err := store.GroupDir(camera)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if err := store.WriteAtomic(dir, livestreamEndMarker, []byte{}); err != nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusOK)
}

// writeSSE emits a single "data: <payload>\n\n" event and ends the
// response; every wait endpoint in this package resolves exactly one
// event per HTTP request (spec.md section 4.4).
func writeSSE(c *echo.Context, payload string) error {
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().WriteHeader(http.StatusOK)
	_, err := c.Response().Write([]byte("data: " + payload + "\n\n"))
	return err
}
