package config

import "time"

// seclusoYAMLConfig mirrors the top-level config.yaml file. Each
// top-level section corresponds to one binary in cmd/; a single file
// can configure all three for local/dev use, or a deployment can ship
// only the section its binary needs.
type seclusoYAMLConfig struct {
	CameraHub *CameraHubYAMLConfig `yaml:"camera_hub"`
	DS        *DSYAMLConfig        `yaml:"delivery_service"`
	App       *AppYAMLConfig       `yaml:"app"`
}

// CameraHubYAMLConfig configures the camera-hub binary. String fields
// may reference environment variables with ${VAR} or $VAR syntax
// (expanded before parsing); the .env file alongside config.yaml is the
// usual place to put DSUsername/DSPassword secrets.
type CameraHubYAMLConfig struct {
	Backend           string `yaml:"backend"` // "ip_camera" or "raspberry_pi"
	StateDir          string `yaml:"state_dir"`
	VideoDir          string `yaml:"video_dir"`
	EncryptedDir      string `yaml:"encrypted_dir"`
	ThumbnailDir      string `yaml:"thumbnail_dir"`
	DSBaseURL         string `yaml:"ds_base_url"`
	DSUsername        string `yaml:"ds_username"`
	DSPassword        string `yaml:"ds_password"`
	HeartbeatInterval string `yaml:"heartbeat_interval"`
	PairingListenAddr string `yaml:"pairing_listen_addr"`
}

// DSYAMLConfig configures the ds-server binary.
type DSYAMLConfig struct {
	ListenAddr          string `yaml:"listen_addr"`
	DataDir             string `yaml:"data_dir"`
	UserCredentialsDir  string `yaml:"user_credentials_dir"`
	SkipUserCredentials bool   `yaml:"skip_user_credentials"`
	DBDSN               string `yaml:"db_dsn"`
}

// AppYAMLConfig configures the app-sim binary.
type AppYAMLConfig struct {
	StateDir   string `yaml:"state_dir"`
	DSBaseURL  string `yaml:"ds_base_url"`
	DSUsername string `yaml:"ds_username"`
	DSPassword string `yaml:"ds_password"`
}

// CameraHubConfig is the resolved, ready-to-use configuration for
// cmd/camera-hub.
type CameraHubConfig struct {
	Backend           string
	StateDir          string
	VideoDir          string
	EncryptedDir      string
	ThumbnailDir      string
	DSBaseURL         string
	DSUsername        string
	DSPassword        string
	HeartbeatInterval time.Duration
	PairingListenAddr string
}

// DSConfig is the resolved configuration for cmd/ds-server.
type DSConfig struct {
	ListenAddr          string
	DataDir             string
	UserCredentialsDir  string
	SkipUserCredentials bool
	DBDSN               string // empty disables the durable ledger
}

// AppConfig is the resolved configuration for cmd/app-sim.
type AppConfig struct {
	StateDir   string
	DSBaseURL  string
	DSUsername string
	DSPassword string
}

// Config is the fully loaded, validated configuration tree. Any section
// may be nil if the YAML omitted it; cmd/ binaries require their own
// section to be present.
type Config struct {
	CameraHub *CameraHubConfig
	DS        *DSConfig
	App       *AppConfig
}
