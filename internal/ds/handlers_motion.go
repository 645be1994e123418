package ds

import (
	"io"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

func (s *Server) handleMotionUpload(c *echo.Context, username string) error {
	camera := c.Param("camera")
	file := c.Param("file")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxMotionUploadBytes+1))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if len(body) > maxMotionUploadBytes {
		return c.NoContent(http.StatusRequestEntityTooLarge)
	}

	store := s.storeFor(username)
	dir, err := store.GroupDir(camera)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	pending, err := store.CountPending(dir, nil)
	if err != nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	if pending >= maxPendingMotionFiles {
		return c.NoContent(http.StatusInsufficientStorage)
	}

	if err := store.WriteAtomic(dir, file, body); err != nil {
		if err == ErrPathEscape {
			return c.NoContent(http.StatusBadRequest)
		}
		return c.NoContent(http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, map[string]int{"pending": pending + 1})
}

func (s *Server) handleMotionFetch(c *echo.Context, username string) error {
	camera := c.Param("camera")
	file := c.Param("file")

	store := s.storeFor(username)
	dir, err := store.GroupDir(camera)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	data, err := store.Read(dir, file)
	if err != nil {
		if err == ErrPathEscape {
			return c.NoContent(http.StatusBadRequest)
		}
		return c.NoContent(http.StatusNotFound)
	}
	return c.Blob(http.StatusOK, "application/octet-stream", data)
}

func (s *Server) handleMotionDelete(c *echo.Context, username string) error {
	camera := c.Param("camera")
	file := c.Param("file")

	store := s.storeFor(username)
	dir, err := store.GroupDir(camera)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if err := store.Remove(dir, file); err != nil {
		if err == ErrPathEscape {
			return c.NoContent(http.StatusBadRequest)
		}
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusOK)
}

// handleGroupDelete deregisters a camera entirely, dropping its whole
// queue directory (spec.md section 4.4, "DELETE /<camera>").
func (s *Server) handleGroupDelete(c *echo.Context, username string) error {
	camera := c.Param("camera")
	store := s.storeFor(username)
	if err := store.RemoveGroup(camera); err != nil {
		if err == ErrPathEscape {
			return c.NoContent(http.StatusBadRequest)
		}
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusOK)
}
