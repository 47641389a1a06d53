// Package config loads isyarat settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/isyarat/internal/detector"
)

// Config holds the settings shared by every command.
type Config struct {
	Addr            string
	DataDir         string
	StaticDir       string
	CameraID        int
	MotionThreshold float64
	LabelsPath      string
	WholeWords      bool
	Detector        detector.Config
}

// DBPath returns the location of the SQLite database.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "isyarat.db")
}

type fileConfig struct {
	Server      serverSection      `yaml:"server"`
	Camera      cameraSection      `yaml:"camera"`
	Recognition recognitionSection `yaml:"recognition"`
}

type serverSection struct {
	Addr      string `yaml:"addr"`
	DataDir   string `yaml:"dataDir"`
	StaticDir string `yaml:"staticDir"`
}

type cameraSection struct {
	Device          *int    `yaml:"device"`
	MotionThreshold float64 `yaml:"motionThreshold"`
	Mirror          *bool   `yaml:"mirror"`
}

type recognitionSection struct {
	Labels        string  `yaml:"labels"`
	WholeWords    *bool   `yaml:"wholeWords"`
	MaxHands      int     `yaml:"maxHands"`
	MinConfidence float64 `yaml:"minConfidence"`
	Script        string  `yaml:"script"`
	Python        string  `yaml:"python"`
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := ".isyarat"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".isyarat")
	}
	return Config{
		Addr:            ":8080",
		DataDir:         dataDir,
		MotionThreshold: 1.0,
		LabelsPath:      filepath.Join(dataDir, "labels.txt"),
		Detector:        detector.DefaultConfig(),
	}
}

// Load reads the first config file found and applies environment overrides.
// An explicit path must exist; the default candidates are optional. It
// returns the file used, or "" when only defaults applied.
func Load(path string) (Config, string, error) {
	cfg := Default()

	var candidates []string
	if path != "" {
		candidates = []string{path}
	} else {
		candidates = []string{"configs/isyarat.yaml"}
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, ".isyarat", "config.yaml"))
		}
	}

	used := ""
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if errors.Is(err, fs.ErrNotExist) && path == "" {
			continue
		}
		if err != nil {
			return Config{}, "", fmt.Errorf("read config: %w", err)
		}

		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, "", fmt.Errorf("parse config %s: %w", candidate, err)
		}
		merge(&cfg, parsed)
		used = candidate
		break
	}

	ApplyEnvOverrides(&cfg)
	return cfg, used, nil
}

// merge copies the values set in src over dst.
func merge(dst *Config, src fileConfig) {
	if src.Server.Addr != "" {
		dst.Addr = src.Server.Addr
	}
	if src.Server.DataDir != "" {
		setDataDir(dst, src.Server.DataDir)
	}
	if src.Server.StaticDir != "" {
		dst.StaticDir = src.Server.StaticDir
	}

	if src.Camera.Device != nil {
		dst.CameraID = *src.Camera.Device
	}
	if src.Camera.MotionThreshold > 0 {
		dst.MotionThreshold = src.Camera.MotionThreshold
	}
	if src.Camera.Mirror != nil {
		dst.Detector.MirrorX = *src.Camera.Mirror
	}

	r := src.Recognition
	if r.Labels != "" {
		dst.LabelsPath = r.Labels
	}
	if r.WholeWords != nil {
		dst.WholeWords = *r.WholeWords
	}
	if r.MaxHands > 0 && r.MaxHands <= detector.MaxHands {
		dst.Detector.MaxHands = r.MaxHands
	}
	if r.MinConfidence > 0 {
		dst.Detector.MinConfidence = r.MinConfidence
	}
	if r.Script != "" {
		dst.Detector.ScriptPath = r.Script
	}
	if r.Python != "" {
		dst.Detector.PythonPath = r.Python
	}
}

// ApplyEnvOverrides applies ISYARAT_* environment variables.
func ApplyEnvOverrides(cfg *Config) {
	if v := envString("ISYARAT_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := envString("ISYARAT_DATA_DIR"); v != "" {
		setDataDir(cfg, v)
	}
	if v := envString("ISYARAT_STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	cfg.CameraID = envIntWithFallback("ISYARAT_CAMERA", cfg.CameraID)
	if v := envString("ISYARAT_LABELS"); v != "" {
		cfg.LabelsPath = v
	}
	if v := envString("ISYARAT_PYTHON"); v != "" {
		cfg.Detector.PythonPath = v
	}
	cfg.Detector.MirrorX = envBoolWithFallback("ISYARAT_MIRROR", cfg.Detector.MirrorX)
	cfg.WholeWords = envBoolWithFallback("ISYARAT_WHOLE_WORDS", cfg.WholeWords)
}

// setDataDir moves the data directory, carrying the default labels path
// along with it.
func setDataDir(cfg *Config, dir string) {
	if cfg.LabelsPath == filepath.Join(cfg.DataDir, "labels.txt") {
		cfg.LabelsPath = filepath.Join(dir, "labels.txt")
	}
	cfg.DataDir = dir
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envBoolWithFallback(key string, fallback bool) bool {
	switch strings.ToLower(envString(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envIntWithFallback(key string, fallback int) int {
	raw := envString(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
