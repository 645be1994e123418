// app-sim is a command-line stand-in for the mobile app: it completes
// pairing with a camera hub over the LAN, then exercises the paired
// relationship — heartbeats, motion video retrieval, livestream
// playback — against the delivery service (spec.md sections 4.5, 4.6,
// 4.2).
package main

import (
	"context"
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

	"github.com/secluso/secluso/internal/appclient"
	"github.com/secluso/secluso/internal/config"
	"github.com/secluso/secluso/internal/mls"
	"github.com/secluso/secluso/internal/pairing"
	"github.com/secluso/secluso/internal/subchannel"
	"github.com/secluso/secluso/internal/transport"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	configDir := getEnv("CONFIG_DIR", "./deploy/config")
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	if cfg.App == nil {
		slog.Error("config.yaml has no app section")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "pair":
		runPair(ctx, cfg.App, os.Args[2:])
	case "heartbeat":
		runHeartbeat(ctx, cfg.App, os.Args[2:])
	case "fetch-motion":
		runFetchMotion(ctx, cfg.App, os.Args[2:])
	case "live":
		runLive(ctx, cfg.App, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: app-sim <pair|heartbeat|fetch-motion|live> [flags]")
}

func clientsDir(appCfg *config.AppConfig, camera string) string {
	return filepath.Join(appCfg.StateDir, camera)
}

func loadClients(appCfg *config.AppConfig, cameraName string) ([subchannel.Count]*mls.Client, error) {
	var clients [subchannel.Count]*mls.Client
	for _, tag := range subchannel.All {
		c, err := mls.New(filepath.Join(clientsDir(appCfg, cameraName), tag.String()), tag)
		if err != nil {
			return clients, fmt.Errorf("restore %s client: %w", tag, err)
		}
		clients[tag] = c
	}
	return clients, nil
}

func runPair(ctx context.Context, appCfg *config.AppConfig, args []string) {
	fs := flag.NewFlagSet("pair", flag.ExitOnError)
	cameraAddr := fs.String("camera-addr", "", "host:port of the camera hub's pairing listener")
	cameraName := fs.String("camera-name", "default", "local name for this camera (used as the state sub-directory)")
	qrFile := fs.String("qr-file", "", "path to the scanned QR payload JSON")
	_ = fs.Parse(args)

	if *cameraAddr == "" || *qrFile == "" {
		slog.Error("pair requires -camera-addr and -qr-file")
		os.Exit(2)
	}

	qrBytes, err := os.ReadFile(*qrFile)
	if err != nil {
		slog.Error("failed to read qr file", "error", err)
		os.Exit(1)
	}
	secret, err := pairing.ParseQRPayload(qrBytes)
	if err != nil {
		slog.Error("failed to parse qr payload", "error", err)
		os.Exit(1)
	}

	clients, err := loadClients(appCfg, *cameraName)
	if err != nil {
		slog.Error("failed to prepare mls clients", "error", err)
		os.Exit(1)
	}

	conn, err := net.DialTimeout("tcp", *cameraAddr, 10*time.Second)
	if err != nil {
		slog.Error("failed to dial camera", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	dsCfg := pairing.AppConfigExchange{
		DSUsername: appCfg.DSUsername,
		DSPassword: appCfg.DSPassword,
		DS:         transport.New(appCfg.DSBaseURL, appCfg.DSUsername, appCfg.DSPassword),
	}

	groupName, err := pairing.RunAppSide(ctx, conn, secret, clients, dsCfg)
	if err != nil {
		slog.Error("pairing failed", "error", err)
		os.Exit(1)
	}
	slog.Info("paired with camera", "camera", *cameraName, "group", groupName)
}

func runHeartbeat(ctx context.Context, appCfg *config.AppConfig, args []string) {
	fs := flag.NewFlagSet("heartbeat", flag.ExitOnError)
	cameraName := fs.String("camera-name", "default", "local name of the paired camera")
	_ = fs.Parse(args)

	stateDir := clientsDir(appCfg, *cameraName)
	motionEpoch, err := appclient.LoadMotionEpoch(stateDir)
	if err != nil {
		slog.Error("failed to load persisted motion epoch", "error", err)
		os.Exit(1)
	}

	clients, err := loadClients(appCfg, *cameraName)
	if err != nil {
		slog.Error("failed to load mls clients", "error", err)
		os.Exit(1)
	}
	ds := transport.New(appCfg.DSBaseURL, appCfg.DSUsername, appCfg.DSPassword)
	a := appclient.New(*cameraName, ds, clients)

	result, advise, err := a.SendHeartbeat(ctx, uint64(time.Now().Unix()), motionEpoch)
	if err != nil {
		slog.Error("heartbeat failed", "error", err)
		os.Exit(1)
	}
	slog.Info("heartbeat result", "classification", result.String(), "advise_repair", advise)
}

func runFetchMotion(ctx context.Context, appCfg *config.AppConfig, args []string) {
	fs := flag.NewFlagSet("fetch-motion", flag.ExitOnError)
	cameraName := fs.String("camera-name", "default", "local name of the paired camera")
	filename := fs.String("file", "", "remote file name reported by bulkCheck")
	videoDir := fs.String("video-dir", "./videos", "directory to save decrypted videos into")
	_ = fs.Parse(args)

	if *filename == "" {
		slog.Error("fetch-motion requires -file")
		os.Exit(2)
	}
	if err := os.MkdirAll(*videoDir, 0o700); err != nil {
		slog.Error("failed to create video directory", "error", err)
		os.Exit(1)
	}

	clients, err := loadClients(appCfg, *cameraName)
	if err != nil {
		slog.Error("failed to load mls clients", "error", err)
		os.Exit(1)
	}
	ds := transport.New(appCfg.DSBaseURL, appCfg.DSUsername, appCfg.DSPassword)
	a := appclient.New(*cameraName, ds, clients)

	path, err := a.FetchMotionVideo(ctx, *filename, *videoDir)
	if err != nil {
		if err == appclient.ErrDuplicateVideo {
			slog.Info("video already saved", "path", path)
			return
		}
		slog.Error("fetch motion video failed", "error", err)
		os.Exit(1)
	}
	slog.Info("saved motion video", "path", path)

	stateDir := clientsDir(appCfg, *cameraName)
	epoch, err := appclient.LoadMotionEpoch(stateDir)
	if err != nil {
		slog.Error("failed to load persisted motion epoch", "error", err)
		os.Exit(1)
	}
	if err := appclient.SaveMotionEpoch(stateDir, epoch+1); err != nil {
		slog.Error("failed to persist motion epoch", "error", err)
		os.Exit(1)
	}
}

func runLive(ctx context.Context, appCfg *config.AppConfig, args []string) {
	fs := flag.NewFlagSet("live", flag.ExitOnError)
	cameraName := fs.String("camera-name", "default", "local name of the paired camera")
	outFile := fs.String("out", "", "file to write the raw fMP4 stream to")
	_ = fs.Parse(args)

	if *outFile == "" {
		slog.Error("live requires -out")
		os.Exit(2)
	}
	out, err := os.Create(*outFile)
	if err != nil {
		slog.Error("failed to create output file", "error", err)
		os.Exit(1)
	}
	defer out.Close()

	clients, err := loadClients(appCfg, *cameraName)
	if err != nil {
		slog.Error("failed to load mls clients", "error", err)
		os.Exit(1)
	}
	ds := transport.New(appCfg.DSBaseURL, appCfg.DSUsername, appCfg.DSPassword)
	a := appclient.New(*cameraName, ds, clients)

	defer func() {
		if err := a.StopLivestream(context.Background()); err != nil {
			slog.Warn("failed to end livestream", "error", err)
		}
	}()

	if err := a.PlayLivestream(ctx, out); err != nil && ctx.Err() == nil {
		slog.Error("livestream ended with error", "error", err)
		os.Exit(1)
	}
}
