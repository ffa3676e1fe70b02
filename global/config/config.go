package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Validator interface {
	Validate() error
}

// Load 读取 YAML（支持 ${ENV} 展开）并校验
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

// LoadOrDefault 文件不存在时只校验默认值（本地开发直接起）
func LoadOrDefault(filename string, target *AppConfig) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return target.Validate()
	}
	return Load(filename, target)
}
