// Package ds implements the delivery service: the untrusted,
// Basic-auth-gated queueing and notification plane that camera hubs and
// mobile apps use to exchange MLS ciphertexts (spec.md section 4.4).
package ds

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

const (
	maxMotionUploadBytes     = 50 * 1024 * 1024
	maxLivestreamUploadBytes = 20 * 1024 * 1024
	maxConfigUploadBytes     = 10 * 1024

	maxPendingMotionFiles     = 100
	maxPendingLivestreamFiles = 50

	livestreamEndMarker = "livestream_end"
	commitChunkName     = "0"
)

// Server is the delivery service HTTP server.
type Server struct {
	echo        *echo.Echo
	httpServer  *http.Server
	dataDir     string
	credentials *CredentialStore
	lockout     *LockoutTracker
	events      *EventRegistry
	pairing     *PairingTable
	ledger      LockoutLedger // optional durable audit trail; nil disables it
}

// LockoutLedger is the optional durable backing store for brute-force
// audit history (spec.md section 4.4.1 supplement). The in-memory
// LockoutTracker is always authoritative for the live decision; the
// ledger, when present, only records history for operators.
type LockoutLedger interface {
	RecordAttempt(ctx context.Context, ip, username string, success bool) error
}

// NewServer creates a Server rooted at dataDir, authenticating against
// credentials, with ledger as an optional durable audit sink (pass nil
// to disable it).
func NewServer(dataDir string, credentials *CredentialStore, ledger LockoutLedger) *Server {
	e := echo.New()
	s := &Server{
		echo:        e,
		dataDir:     dataDir,
		credentials: credentials,
		lockout:     NewLockoutTracker(),
		events:      NewEventRegistry(),
		pairing:     NewPairingTable(),
		ledger:      ledger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(maxMotionUploadBytes + 1024))

	s.echo.POST("/pair", s.handlePair)
	s.echo.POST("/bulkCheck", s.withAuth(s.handleBulkCheck))

	// Motion clips and thumbnails share one route: both are opaque,
	// MLS-encrypted blobs queued per camera (spec.md section 4.4).
	s.echo.POST("/:camera/:file", s.withAuth(s.handleMotionUpload))
	s.echo.GET("/:camera/:file", s.withAuth(s.handleMotionFetch))
	s.echo.DELETE("/:camera/:file", s.withAuth(s.handleMotionDelete))
	s.echo.DELETE("/:camera", s.withAuth(s.handleGroupDelete))

	s.echo.POST("/livestream/:camera", s.withAuth(s.handleLivestreamStartSignal))
	s.echo.GET("/livestream/:camera", s.withAuth(s.handleLivestreamStartWait))
	s.echo.POST("/livestream/:camera/:n", s.withAuth(s.handleLivestreamChunkUpload))
	s.echo.GET("/livestream/:camera/:n", s.withAuth(s.handleLivestreamChunkFetch))
	s.echo.POST("/livestream_end/:camera", s.withAuth(s.handleLivestreamEnd))

	s.echo.POST("/config/:camera", s.withAuth(s.handleConfigCommandUpload))
	s.echo.GET("/config/:camera", s.withAuth(s.handleConfigCommandWait))
	s.echo.POST("/config_response/:camera", s.withAuth(s.handleConfigResponseUpload))
	s.echo.GET("/config_response/:camera", s.withAuth(s.handleConfigResponseWait))

	s.echo.POST("/fcm_token", s.withAuth(s.handleFCMToken))
	s.echo.POST("/fcm_notification", s.withAuth(s.handleFCMNotification))
	s.echo.POST("/debug_logs/:camera", s.withAuth(s.handleDebugLogsUpload))
	s.echo.GET("/debug_logs/:camera", s.withAuth(s.handleDebugLogsFetch))
}

// Start serves on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	slog.Info("delivery service listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// StartWithListener serves on a pre-created listener, used by tests
// that need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server: it stops accepting connections
// and waits, bounded by ctx, for active requests to finish. It does not
// cancel SSE waits already in progress; those end at sseWaitTimeout or
// when their client disconnects.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// authedUser is stashed on the echo.Context after successful auth.
type authedUser struct {
	username string
}

// withAuth wraps a handler with HTTP Basic auth plus the per-IP
// brute-force guard.
func (s *Server) withAuth(next func(c *echo.Context, user string) error) func(c *echo.Context) error {
	return func(c *echo.Context) error {
		ip := clientIP(c)
		if s.lockout.Locked(ip) {
			return c.NoContent(http.StatusTooManyRequests)
		}

		username, password, ok := c.Request().BasicAuth()
		valid := ok && s.credentials.Verify(username, password)

		if s.ledger != nil {
			if err := s.ledger.RecordAttempt(c.Request().Context(), ip, username, valid); err != nil {
				slog.Warn("failed to record auth attempt in ledger", "error", err)
			}
		}

		if !valid {
			s.lockout.RecordFailure(ip)
			return c.NoContent(http.StatusUnauthorized)
		}
		s.lockout.RecordSuccess(ip)

		return next(c, username)
	}
}

func clientIP(c *echo.Context) string {
	host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
	if err != nil {
		return c.Request().RemoteAddr
	}
	return host
}

func (s *Server) storeFor(username string) *Store {
	return NewStore(s.dataDir, username)
}

// sseKey builds the EventState key for a (route, camera[, extra]) tuple.
func sseKey(route, camera, extra string) string {
	if extra == "" {
		return fmt.Sprintf("%s:%s", route, camera)
	}
	return fmt.Sprintf("%s:%s:%s", route, camera, extra)
}

const sseWaitTimeout = 60 * time.Second
