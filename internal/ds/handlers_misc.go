package ds

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	echo "github.com/labstack/echo/v5"
)

const (
	fcmTokenFileName  = "fcm_token"
	debugLogsFileName = "debug_logs"

	// maxDebugLogsUploadBytes caps a single debug log submission (spec.md
	// section 4.4, supplement).
	maxDebugLogsUploadBytes = 1024 * 1024
)

type bulkCheckEntry struct {
	GroupName    string `json:"group_name"`
	EpochToCheck uint64 `json:"epoch_to_check"`
}

type bulkCheckRequestBody struct {
	GroupNames []bulkCheckEntry `json:"group_names"`
}

type bulkCheckResultBody struct {
	GroupName string `json:"group_name"`
	ModTime   int64  `json:"mtime"`
}

func (s *Server) handleBulkCheck(c *echo.Context, username string) error {
	var req bulkCheckRequestBody
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	store := s.storeFor(username)
	out := make([]bulkCheckResultBody, 0, len(req.GroupNames))
	for _, entry := range req.GroupNames {
		dir, err := store.GroupDir(entry.GroupName)
		if err != nil {
			continue
		}
		epochName := strconv.FormatUint(entry.EpochToCheck, 10)
		path := filepath.Join(dir, epochName)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		out = append(out, bulkCheckResultBody{GroupName: entry.GroupName, ModTime: info.ModTime().Unix()})
	}

	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleFCMToken(c *echo.Context, username string) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	store := s.storeFor(username)
	if err := os.MkdirAll(store.root, 0o700); err != nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	if err := store.WriteAtomic(store.root, fcmTokenFileName, body); err != nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusOK)
}

// handleFCMNotification forwards a push notification trigger. Actual
// delivery to Google/Apple push infrastructure is out of scope (spec.md
// Non-goals); this endpoint only accepts and acknowledges the request
// so the upstream protocol surface matches the table in spec.md section
// 4.4.
func (s *Server) handleFCMNotification(c *echo.Context, username string) error {
	if _, err := io.ReadAll(c.Request().Body); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleDebugLogsFetch(c *echo.Context, username string) error {
	camera := c.Param("camera")
	store := s.storeFor(username)
	dir, err := store.GroupDir(camera)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	data, err := store.Read(dir, debugLogsFileName)
	if err != nil {
		return c.NoContent(http.StatusNotFound)
	}
	return c.Blob(http.StatusOK, "application/octet-stream", data)
}

func (s *Server) handleDebugLogsUpload(c *echo.Context, username string) error {
	camera := c.Param("camera")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxDebugLogsUploadBytes+1))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if len(body) > maxDebugLogsUploadBytes {
		return c.NoContent(http.StatusRequestEntityTooLarge)
	}

	store := s.storeFor(username)
	dir, err := store.GroupDir(camera)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if err := store.WriteAtomic(dir, debugLogsFileName, body); err != nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusOK)
}
