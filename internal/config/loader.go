package config

import (
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML() (*seclusoYAMLConfig, error) {
	path := filepath.Join(l.configDir, configFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}
	data = ExpandEnv(data)

	var cfg seclusoYAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &cfg, nil
}

func mergeCameraHub(yamlCfg *CameraHubYAMLConfig) (*CameraHubYAMLConfig, error) {
	if yamlCfg == nil {
		return nil, nil
	}
	merged := defaultCameraHubYAML()
	if err := mergo.Merge(&merged, yamlCfg, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge camera_hub config: %w", err)
	}
	return &merged, nil
}

func mergeDS(yamlCfg *DSYAMLConfig) (*DSYAMLConfig, error) {
	if yamlCfg == nil {
		return nil, nil
	}
	merged := defaultDSYAML()
	if err := mergo.Merge(&merged, yamlCfg, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge delivery_service config: %w", err)
	}
	return &merged, nil
}

func mergeApp(yamlCfg *AppYAMLConfig) (*AppYAMLConfig, error) {
	if yamlCfg == nil {
		return nil, nil
	}
	merged := defaultAppYAML()
	if err := mergo.Merge(&merged, yamlCfg, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge app config: %w", err)
	}
	return &merged, nil
}
