// Package config loads and validates camera-hub, delivery-service, and
// app configuration from a config.yaml plus .env pair, in the same
// Initialize(ctx, configDir) idiom the reference stack uses (spec.md
// section 6.1 supplement).
package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Initialize loads config.yaml from configDir, expands environment
// variables, merges in defaults, validates, and returns a ready-to-use
// Config. Callers load .env into the process environment (e.g. via
// godotenv) before calling this.
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("loading configuration")

	loader := &configLoader{configDir: configDir}
	yamlCfg, err := loader.loadYAML()
	if err != nil {
		return nil, NewLoadError(configFileName, err)
	}

	hubYAML, err := mergeCameraHub(yamlCfg.CameraHub)
	if err != nil {
		return nil, err
	}
	dsYAML, err := mergeDS(yamlCfg.DS)
	if err != nil {
		return nil, err
	}
	appYAML, err := mergeApp(yamlCfg.App)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if hubYAML != nil {
		hub, err := resolveCameraHub(hubYAML)
		if err != nil {
			return nil, err
		}
		cfg.CameraHub = hub
	}
	if dsYAML != nil {
		cfg.DS = resolveDS(dsYAML)
	}
	if appYAML != nil {
		cfg.App = resolveApp(appYAML)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	log.Info("configuration loaded",
		"camera_hub", cfg.CameraHub != nil,
		"delivery_service", cfg.DS != nil,
		"app", cfg.App != nil)
	return cfg, nil
}

func resolveCameraHub(y *CameraHubYAMLConfig) (*CameraHubConfig, error) {
	interval, err := time.ParseDuration(y.HeartbeatInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: heartbeat_interval %q: %v", ErrInvalidYAML, y.HeartbeatInterval, err)
	}
	return &CameraHubConfig{
		Backend:           y.Backend,
		StateDir:          y.StateDir,
		VideoDir:          y.VideoDir,
		EncryptedDir:      y.EncryptedDir,
		ThumbnailDir:      y.ThumbnailDir,
		DSBaseURL:         y.DSBaseURL,
		DSUsername:        y.DSUsername,
		DSPassword:        y.DSPassword,
		HeartbeatInterval: interval,
		PairingListenAddr: y.PairingListenAddr,
	}, nil
}

func resolveDS(y *DSYAMLConfig) *DSConfig {
	return &DSConfig{
		ListenAddr:          y.ListenAddr,
		DataDir:             y.DataDir,
		UserCredentialsDir:  y.UserCredentialsDir,
		SkipUserCredentials: y.SkipUserCredentials,
		DBDSN:               y.DBDSN,
	}
}

func resolveApp(y *AppYAMLConfig) *AppConfig {
	return &AppConfig{
		StateDir:   y.StateDir,
		DSBaseURL:  y.DSBaseURL,
		DSUsername: y.DSUsername,
		DSPassword: y.DSPassword,
	}
}
