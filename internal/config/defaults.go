package config

import "time"

const (
	defaultHeartbeatInterval = 60 * time.Second
	defaultPairingListenAddr = ":12348"
	defaultDSListenAddr      = ":8443"
)

func defaultCameraHubYAML() CameraHubYAMLConfig {
	return CameraHubYAMLConfig{
		Backend:           "ip_camera",
		StateDir:          "./data/hub/state",
		VideoDir:          "./data/hub/video",
		EncryptedDir:      "./data/hub/encrypted",
		ThumbnailDir:      "./data/hub/thumbnail",
		HeartbeatInterval: defaultHeartbeatInterval.String(),
		PairingListenAddr: defaultPairingListenAddr,
	}
}

func defaultDSYAML() DSYAMLConfig {
	return DSYAMLConfig{
		ListenAddr:         defaultDSListenAddr,
		DataDir:            "./data/ds",
		UserCredentialsDir: "./data/ds/user_credentials",
	}
}

func defaultAppYAML() AppYAMLConfig {
	return AppYAMLConfig{
		StateDir: "./data/app/state",
	}
}
