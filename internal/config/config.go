package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode        string        `mapstructure:"mode"`
	Port        int           `mapstructure:"port"`
	StaticPath  string        `mapstructure:"static_path"`
	ReadLimit   int64         `mapstructure:"read_limit"`
	PingPeriod  time.Duration `mapstructure:"ping_period"`
	Secret      string        `mapstructure:"secret"`
	LogLevel    string        `mapstructure:"log_level"`
	DefaultRoom string        `mapstructure:"default_room"`

	Media   MediaConfig   `mapstructure:"media"`
	Preview PreviewConfig `mapstructure:"preview"`
	Limits  LimitsConfig  `mapstructure:"limits"`
}

type MediaConfig struct {
	AllowCapture   bool          `mapstructure:"allow_capture"`
	Width          int           `mapstructure:"width"`
	Height         int           `mapstructure:"height"`
	FrameRate      float64       `mapstructure:"frame_rate"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
}

type PreviewConfig struct {
	FPS     int `mapstructure:"fps"`
	Quality int `mapstructure:"quality"`
}

type LimitsConfig struct {
	RoomCapacity   int           `mapstructure:"room_capacity"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	RetryLimit     int           `mapstructure:"retry_limit"`
	RetryWindow    time.Duration `mapstructure:"retry_window"`
	RenameDebounce time.Duration `mapstructure:"rename_debounce"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("log_level", "info")
	v.SetDefault("default_room", "lobby")

	v.SetDefault("media.allow_capture", true)
	v.SetDefault("media.width", 640)
	v.SetDefault("media.height", 480)
	v.SetDefault("media.frame_rate", 30)
	v.SetDefault("media.acquire_timeout", "0s")

	v.SetDefault("preview.fps", 10)
	v.SetDefault("preview.quality", 60)

	v.SetDefault("limits.room_capacity", 16)
	v.SetDefault("limits.send_buffer", 64)
	v.SetDefault("limits.retry_limit", 3)
	v.SetDefault("limits.retry_window", "10s")
	v.SetDefault("limits.rename_debounce", "250ms")
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default). Every key
// can be overridden by a LOBBY_ prefixed variable, e.g. LOBBY_MEDIA_ALLOW_CAPTURE.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("lobby")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Static: %s | Capture: %t\n",
		cfg.Mode, cfg.Port, cfg.StaticPath, cfg.Media.AllowCapture)
	return &cfg, nil
}
