package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dkeye/Interview/internal/domain"
	"github.com/spf13/viper"
)

// ICEServer mirrors the {urls, username?, credential?} objects handed to peers.
type ICEServer struct {
	URLs       []string `mapstructure:"urls" json:"urls"`
	Username   string   `mapstructure:"username" json:"username,omitempty"`
	Credential string   `mapstructure:"credential" json:"credential,omitempty"`
}

type Config struct {
	Mode          string           `mapstructure:"mode"`
	Port          int              `mapstructure:"port"`
	StaticPath    string           `mapstructure:"static_path"`
	ReadLimit     int64            `mapstructure:"read_limit"`
	PingPeriod    time.Duration    `mapstructure:"ping_period"`
	SendQueue     int              `mapstructure:"send_queue"`
	Secret        string           `mapstructure:"secret"`
	RoomCapacity  int              `mapstructure:"room_capacity"`
	JoinRateLimit int              `mapstructure:"join_rate_limit"`
	JoinRateEvery time.Duration    `mapstructure:"join_rate_every"`
	ICEServers    []ICEServer      `mapstructure:"ice_servers"`
	Problems      []domain.Problem `mapstructure:"problems"`
}

func configFile() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return fmt.Sprintf("config/config.%s.yaml", env)
}

func readFile(v *viper.Viper) string {
	fileName := configFile()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}
	return fileName
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_queue", 64)
	v.SetDefault("room_capacity", 2)
	v.SetDefault("join_rate_limit", 5)
	v.SetDefault("join_rate_every", "10s")
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
		{"urls": []string{"stun:stun1.l.google.com:19302"}},
	})

	readFile(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Problems: %d | ICE servers: %d\n", cfg.Mode, cfg.Port, len(cfg.Problems), len(cfg.ICEServers))
	return &cfg, nil
}
