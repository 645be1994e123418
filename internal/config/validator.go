package config

import "fmt"

// validate checks every present section for required fields. A missing
// section is not itself an error — cmd/ binaries that need a section
// check for it and fail at startup with a clearer, binary-specific
// message.
func validate(cfg *Config) error {
	if h := cfg.CameraHub; h != nil {
		if h.DSBaseURL == "" {
			return sectionErr("camera_hub", "ds_base_url")
		}
		if h.DSUsername == "" {
			return sectionErr("camera_hub", "ds_username")
		}
		if h.DSPassword == "" {
			return sectionErr("camera_hub", "ds_password")
		}
		if h.Backend != "ip_camera" && h.Backend != "raspberry_pi" {
			return &ValidationError{Component: "camera_hub", Field: "backend",
				Err: fmt.Errorf("must be ip_camera or raspberry_pi, got %q", h.Backend)}
		}
	}

	if d := cfg.DS; d != nil {
		if d.DataDir == "" {
			return sectionErr("delivery_service", "data_dir")
		}
		if !d.SkipUserCredentials && d.UserCredentialsDir == "" {
			return sectionErr("delivery_service", "user_credentials_dir")
		}
	}

	if a := cfg.App; a != nil {
		if a.DSBaseURL == "" {
			return sectionErr("app", "ds_base_url")
		}
		if a.DSUsername == "" {
			return sectionErr("app", "ds_username")
		}
		if a.DSPassword == "" {
			return sectionErr("app", "ds_password")
		}
	}

	return nil
}

func sectionErr(component, field string) error {
	return &ValidationError{Component: component, Field: field, Err: ErrMissingRequiredField}
}
