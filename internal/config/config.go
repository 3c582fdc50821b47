// Package config loads the robot configuration.
//
// Values are resolved in this order, later sources winning:
//  1. DefaultConfig
//  2. TOML file (if specified)
//  3. .env file (if present), loaded into the process environment
//  4. LOGBOT_* environment variables
//  5. Command-line flags (handled by caller)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/ironsheep/logistics-bot/internal/actuator"
	"github.com/ironsheep/logistics-bot/internal/imaging"
	"github.com/ironsheep/logistics-bot/internal/publish"
)

// Config represents the robot configuration
type Config struct {
	Vision    VisionConfig    `toml:"vision"`
	Motion    MotionConfig    `toml:"motion"`
	Camera    CameraConfig    `toml:"camera"`
	Store     StoreConfig     `toml:"store"`
	Output    OutputConfig    `toml:"output"`
	Logging   LoggingConfig   `toml:"logging"`
	Republish RepublishConfig `toml:"republish"`
}

// VisionConfig holds the region, color and shape thresholds
type VisionConfig struct {
	Region               imaging.Region    `toml:"region"`
	Bands                []imaging.HueBand `toml:"bands"`
	MinSaturation        float64           `toml:"min_saturation"`
	MinValue             float64           `toml:"min_value"`
	KernelSize           int               `toml:"kernel_size"`
	MinArea              float64           `toml:"min_area"`
	ApproxFactor         float64           `toml:"approx_factor"`
	CircularityThreshold float64           `toml:"circularity_threshold"`
	// LineDetector is "hough" or "opencv" (requires the gocv build).
	LineDetector string `toml:"line_detector"`
}

// MotionConfig holds the actuator driver and route timings
type MotionConfig struct {
	// Driver is "gpio", "serial" or "sim".
	Driver     string          `toml:"driver"`
	Forward    time.Duration   `toml:"forward"`
	Turn       time.Duration   `toml:"turn"`
	Settle     time.Duration   `toml:"settle"`
	StopPause  time.Duration   `toml:"stop_pause"`
	Pins       actuator.PinMap `toml:"pins"`
	SerialPort string          `toml:"serial_port"`
	BaudRate   int             `toml:"baud_rate"`
}

// CameraConfig holds the frame source
type CameraConfig struct {
	// Driver is "replay" or "opencv" (requires the gocv build).
	Driver    string `toml:"driver"`
	Device    string `toml:"device"`
	ReplayDir string `toml:"replay_dir"`
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
}

// StoreConfig holds the remote store settings
type StoreConfig struct {
	Enabled         bool   `toml:"enabled"`
	CredentialsPath string `toml:"credentials_path"`
	// DatabaseURL is derived from the service account when empty.
	DatabaseURL string `toml:"database_url"`
}

// OutputConfig holds local output paths
type OutputConfig struct {
	LocalRecord string `toml:"local_record"`
	// ImageDir receives raw and annotated frames. Empty disables saving.
	ImageDir string `toml:"image_dir"`
	// Journal is the SQLite history path. Empty disables the journal.
	Journal string `toml:"journal"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `toml:"level"`
}

// RepublishConfig holds the periodic re-publication settings
type RepublishConfig struct {
	// Interval of zero disables re-publication.
	Interval time.Duration `toml:"interval"`
}

// DefaultConfig returns a Config with the reference robot's settings
func DefaultConfig() *Config {
	seg := imaging.DefaultSegmenter()
	return &Config{
		Vision: VisionConfig{
			Region:               imaging.DefaultRegion,
			Bands:                seg.Bands,
			MinSaturation:        seg.MinSaturation,
			MinValue:             seg.MinValue,
			KernelSize:           seg.KernelSize,
			MinArea:              300,
			ApproxFactor:         0.04,
			CircularityThreshold: 0.75,
			LineDetector:         "hough",
		},
		Motion: MotionConfig{
			Driver:    "gpio",
			Forward:   3 * time.Second,
			Turn:      1500 * time.Millisecond,
			Settle:    time.Second,
			StopPause: 300 * time.Millisecond,
			Pins:      actuator.DefaultPinMap,
			BaudRate:  115200,
		},
		Camera: CameraConfig{
			Driver:    "opencv",
			Device:    "0",
			ReplayDir: "frames",
			Width:     640,
			Height:    480,
		},
		Store: StoreConfig{
			Enabled:         true,
			CredentialsPath: "serviceAccountKey.json",
		},
		Output: OutputConfig{
			LocalRecord: publish.DefaultLocalRecordPath,
			ImageDir:    "captured_images",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a TOML file
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	md, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key: %s", undecoded[0])
	}

	return config, nil
}

// Load resolves the configuration from defaults, an optional TOML file, an
// optional .env file and the environment.
func Load(configPath, envPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		fileConfig, err := LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields from LOGBOT_* environment variables.
func (c *Config) ApplyEnv() error {
	c.Logging.Level = getEnv("LOGBOT_LOG_LEVEL", c.Logging.Level)

	c.Motion.Driver = getEnv("LOGBOT_MOTION_DRIVER", c.Motion.Driver)
	c.Motion.SerialPort = getEnv("LOGBOT_SERIAL_PORT", c.Motion.SerialPort)
	c.Motion.BaudRate = getEnvAsInt("LOGBOT_BAUD_RATE", c.Motion.BaudRate)

	c.Camera.Driver = getEnv("LOGBOT_CAMERA_DRIVER", c.Camera.Driver)
	c.Camera.Device = getEnv("LOGBOT_CAMERA_DEVICE", c.Camera.Device)
	c.Camera.ReplayDir = getEnv("LOGBOT_REPLAY_DIR", c.Camera.ReplayDir)

	c.Store.CredentialsPath = getEnv("LOGBOT_FIREBASE_CREDENTIALS", c.Store.CredentialsPath)
	c.Store.DatabaseURL = getEnv("LOGBOT_FIREBASE_URL", c.Store.DatabaseURL)
	c.Store.Enabled = getEnvAsBool("LOGBOT_STORE_ENABLED", c.Store.Enabled)

	c.Output.LocalRecord = getEnv("LOGBOT_LOCAL_RECORD", c.Output.LocalRecord)
	c.Output.ImageDir = getEnv("LOGBOT_IMAGE_DIR", c.Output.ImageDir)
	c.Output.Journal = getEnv("LOGBOT_JOURNAL", c.Output.Journal)

	interval, err := getEnvAsDuration("LOGBOT_REPUBLISH_INTERVAL", c.Republish.Interval)
	if err != nil {
		return err
	}
	c.Republish.Interval = interval
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Vision validation
	r := c.Vision.Region
	if r.Width <= 0 || r.Height <= 0 || r.X < 0 || r.Y < 0 {
		return fmt.Errorf("vision region must have non-negative origin and positive size: %+v", r)
	}
	if c.Camera.Width > 0 && c.Camera.Height > 0 {
		if err := r.Validate(c.Camera.Width, c.Camera.Height); err != nil {
			return fmt.Errorf("vision region does not fit the camera frame: %w", err)
		}
	}
	if len(c.Vision.Bands) == 0 {
		return fmt.Errorf("vision bands must not be empty")
	}
	for _, b := range c.Vision.Bands {
		if b.Min < 0 || b.Max > 360 || b.Min > b.Max {
			return fmt.Errorf("invalid hue band [%g, %g] (must satisfy 0 <= min <= max <= 360)", b.Min, b.Max)
		}
	}
	if c.Vision.MinSaturation < 0 || c.Vision.MinSaturation > 1 {
		return fmt.Errorf("vision min_saturation must be between 0 and 1")
	}
	if c.Vision.MinValue < 0 || c.Vision.MinValue > 1 {
		return fmt.Errorf("vision min_value must be between 0 and 1")
	}
	if c.Vision.KernelSize < 0 {
		return fmt.Errorf("vision kernel_size must not be negative")
	}
	if c.Vision.MinArea < 0 {
		return fmt.Errorf("vision min_area must not be negative")
	}
	if c.Vision.ApproxFactor <= 0 {
		return fmt.Errorf("vision approx_factor must be positive")
	}
	if c.Vision.CircularityThreshold <= 0 || c.Vision.CircularityThreshold > 1 {
		return fmt.Errorf("vision circularity_threshold must be in (0, 1]")
	}
	if c.Vision.LineDetector != "hough" && c.Vision.LineDetector != "opencv" {
		return fmt.Errorf("unsupported line detector: %s (must be hough or opencv)", c.Vision.LineDetector)
	}

	// Motion validation
	switch c.Motion.Driver {
	case "gpio", "sim":
	case "serial":
		if c.Motion.SerialPort == "" {
			return fmt.Errorf("motion serial_port must be specified for the serial driver")
		}
	default:
		return fmt.Errorf("unsupported motion driver: %s (must be gpio, serial, or sim)", c.Motion.Driver)
	}
	if c.Motion.Forward <= 0 || c.Motion.Turn <= 0 {
		return fmt.Errorf("motion forward and turn durations must be positive")
	}
	if c.Motion.Settle < 0 || c.Motion.StopPause < 0 {
		return fmt.Errorf("motion settle and stop_pause must not be negative")
	}

	// Camera validation
	switch c.Camera.Driver {
	case "replay":
		if c.Camera.ReplayDir == "" {
			return fmt.Errorf("camera replay_dir must be specified for the replay driver")
		}
	case "opencv":
	default:
		return fmt.Errorf("unsupported camera driver: %s (must be replay or opencv)", c.Camera.Driver)
	}

	// Store validation
	if c.Store.Enabled && c.Store.CredentialsPath == "" {
		return fmt.Errorf("store credentials_path must be specified when the store is enabled")
	}

	// Output validation
	if c.Output.LocalRecord == "" {
		return fmt.Errorf("output local_record must be specified")
	}

	// Republish validation
	if c.Republish.Interval < 0 {
		return fmt.Errorf("republish interval must not be negative")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}
