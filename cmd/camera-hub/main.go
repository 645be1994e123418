// camera-hub runs the Secluso camera-side process: it drives a
// camera.Backend, maintains the five paired MLS sub-channels, and
// keeps the delivery monitor's upload queue flowing to the delivery
// service (spec.md sections 4.2-4.6).
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/secluso/secluso/internal/camera"
	"github.com/secluso/secluso/internal/config"
	"github.com/secluso/secluso/internal/hub"
	"github.com/secluso/secluso/internal/mls"
	"github.com/secluso/secluso/internal/monitor"
	"github.com/secluso/secluso/internal/pairing"
	"github.com/secluso/secluso/internal/subchannel"
	"github.com/secluso/secluso/internal/transport"
)

const (
	motionPollInterval     = 5 * time.Second
	motionCaptureDuration  = 15 * time.Second
	heartbeatRespondRetry  = 2 * time.Second
	motionQueueFlushPeriod = 10 * time.Second
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	if cfg.CameraHub == nil {
		slog.Error("config.yaml has no camera_hub section")
		os.Exit(1)
	}
	hubCfg := cfg.CameraHub

	for _, dir := range []string{hubCfg.StateDir, hubCfg.VideoDir, hubCfg.EncryptedDir, hubCfg.ThumbnailDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			slog.Error("failed to create directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	backend, err := newBackend(hubCfg)
	if err != nil {
		slog.Error("failed to build camera backend", "error", err)
		os.Exit(1)
	}

	var clients [subchannel.Count]*mls.Client
	for _, tag := range subchannel.All {
		c, err := mls.New(filepath.Join(hubCfg.StateDir, tag.String()), tag)
		if err != nil {
			slog.Error("failed to restore mls client", "sub_channel", tag.String(), "error", err)
			os.Exit(1)
		}
		clients[tag] = c
	}

	done, err := hub.FirstTimeDone(hubCfg.StateDir)
	if err != nil {
		slog.Error("failed to read first_time_done marker", "error", err)
		os.Exit(1)
	}
	firstTime := !done

	groupName, err := ensurePaired(ctx, clients, backend, hubCfg.PairingListenAddr, hubCfg.DSBaseURL, hubCfg.DSUsername, hubCfg.DSPassword)
	if err != nil {
		slog.Error("pairing failed", "error", err)
		os.Exit(1)
	}

	mon, err := monitor.New(hubCfg.StateDir, hubCfg.VideoDir, hubCfg.EncryptedDir, hubCfg.ThumbnailDir)
	if err != nil {
		slog.Error("failed to restore delivery monitor", "error", err)
		os.Exit(1)
	}

	ds := transport.New(hubCfg.DSBaseURL, hubCfg.DSUsername, hubCfg.DSPassword)
	h := hub.New(backend, clients, mon, ds, groupName, hubCfg.EncryptedDir)

	if firstTime {
		// Send any videos the monitor already carries in its watch list
		// before entering the steady-state loop, mirroring the original
		// hub's post-pairing flush (spec.md section 6, "first_time_done").
		slog.Info("first-time pairing complete, flushing pending motion videos")
		if err := h.FlushMotionQueue(ctx); err != nil {
			slog.Warn("failed to flush motion queue after pairing", "error", err)
		}
		if err := hub.MarkFirstTimeDone(hubCfg.StateDir); err != nil {
			slog.Error("failed to persist first_time_done marker", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("camera hub running", "backend", backend.Name(), "group", groupName)

	go motionLoop(ctx, h)
	go heartbeatLoop(ctx, h)

	<-ctx.Done()
	slog.Info("camera hub shutting down")
}

func newBackend(hubCfg *config.CameraHubConfig) (camera.Backend, error) {
	switch hubCfg.Backend {
	case "ip_camera":
		return camera.NewIPCamera("camera-hub", hubCfg.StateDir, hubCfg.VideoDir, hubCfg.ThumbnailDir, "", nil, nil, nil), nil
	case "raspberry_pi":
		return camera.NewRaspberryPiCamera("camera-hub", hubCfg.StateDir, hubCfg.VideoDir, hubCfg.ThumbnailDir, nil, nil, nil), nil
	default:
		return nil, fmt.Errorf("unknown camera backend %q", hubCfg.Backend)
	}
}

// ensurePaired returns the already-paired group name if every
// sub-channel already has a contact (a prior run completed pairing),
// otherwise it listens for one LAN pairing connection and runs the
// camera's half of the handshake (spec.md section 4.5).
func ensurePaired(ctx context.Context, clients [subchannel.Count]*mls.Client, backend camera.Backend, listenAddr, dsBaseURL, dsUsername, dsPassword string) (string, error) {
	if clients[subchannel.Motion].HasContact() {
		return clients[subchannel.Motion].GetGroupName()
	}

	secret := make([]byte, pairing.SecretLen)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("generate pairing secret: %w", err)
	}
	qr, err := pairing.NewQRPayload(secret)
	if err != nil {
		return "", err
	}
	qrJSON, err := qr.Marshal()
	if err != nil {
		return "", err
	}
	slog.Info("awaiting pairing, scan this code with the app", "qr_payload", string(qrJSON))

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return "", fmt.Errorf("listen for pairing: %w", err)
	}
	defer ln.Close()

	groupName := newGroupName()

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	accepted := make(chan acceptResult, 1)
	go func() {
		conn, err := ln.Accept()
		accepted <- acceptResult{conn, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-accepted:
		if res.err != nil {
			return "", fmt.Errorf("accept pairing connection: %w", res.err)
		}
		defer res.conn.Close()

		cfg := pairing.CameraConfigExchange{
			FirmwareVersion:          "1.0.0",
			SupportsWifiProvisioning: backend.SupportsWifiProvisioning(),
			DS:                       transport.New(dsBaseURL, dsUsername, dsPassword),
		}
		if err := pairing.RunCameraSide(ctx, res.conn, secret, clients, groupName, cfg); err != nil {
			return "", fmt.Errorf("run pairing handshake: %w", err)
		}
		return groupName, nil
	}
}

func newGroupName() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}

func motionLoop(ctx context.Context, h *hub.Hub) {
	ticker := time.NewTicker(motionPollInterval)
	defer ticker.Stop()
	flushTicker := time.NewTicker(motionQueueFlushPeriod)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := h.Backend.IsThereMotion()
			if err != nil {
				if err != camera.ErrNotImplemented {
					slog.Warn("motion detection failed", "error", err)
				}
				continue
			}
			if !result.Detected {
				continue
			}
			timestamp := time.Now().Unix()
			if err := h.NotifyMotionDetected(ctx, timestamp); err != nil {
				slog.Warn("failed to send fcm motion notification", "error", err)
			}
			info, err := h.CaptureAndQueueMotionVideo(timestamp, motionCaptureDuration)
			if err != nil {
				slog.Error("failed to capture and queue motion video", "error", err)
				continue
			}
			slog.Info("queued motion video", "timestamp", info.Timestamp, "epoch", info.Epoch)
			if err := h.NotifyDownloadReady(ctx); err != nil {
				slog.Warn("failed to send fcm download-ready notification", "error", err)
			}
		case <-flushTicker.C:
			if err := h.FlushMotionQueue(ctx); err != nil {
				slog.Warn("failed to flush motion queue", "error", err)
			}
		}
	}
}

func heartbeatLoop(ctx context.Context, h *hub.Hub) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := h.RespondHeartbeat(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("heartbeat round failed", "error", err)
			time.Sleep(heartbeatRespondRetry)
		}
	}
}
