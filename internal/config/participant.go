package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Participant configures the headless participant. Keys live under the
// "participant" section of the same config file and can be overridden by
// command line flags of the same name.
type Participant struct {
	Server           string        `mapstructure:"server"`
	Room             string        `mapstructure:"room"`
	ICEURL           string        `mapstructure:"ice_url"`
	CatalogURL       string        `mapstructure:"catalog_url"`
	JudgeURL         string        `mapstructure:"judge_url"`
	UserID           int64         `mapstructure:"user_id"`
	Language         string        `mapstructure:"language"`
	Debounce         time.Duration `mapstructure:"debounce"`
	Video            bool          `mapstructure:"video"`
	Audio            bool          `mapstructure:"audio"`
	DenyMedia        bool          `mapstructure:"deny_media"`
	SelfTestDuration time.Duration `mapstructure:"selftest_duration"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`
	LogLevel         string        `mapstructure:"log_level"`
}

// SignalURL is the relay websocket endpoint derived from Server.
func (p *Participant) SignalURL() (string, error) {
	u, err := url.Parse(p.Server)
	if err != nil {
		return "", fmt.Errorf("bad server url %q: %w", p.Server, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/ws/signal"
	return u.String(), nil
}

func (p *Participant) endpoint(override, path string) string {
	if override != "" {
		return override
	}
	return strings.TrimSuffix(p.Server, "/") + path
}

func (p *Participant) ICEServersURL() string { return p.endpoint(p.ICEURL, "/api/ice-servers") }

func (p *Participant) ProblemsURL() string { return p.endpoint(p.CatalogURL, "/api/problems") }

func (p *Participant) RoomsURL() string { return p.endpoint("", "/api/rooms") }

// LoadParticipant reads the participant section and lets flags win.
func LoadParticipant(flags *pflag.FlagSet) (*Participant, error) {
	v := viper.New()

	v.SetDefault("participant.server", "http://localhost:8080")
	v.SetDefault("participant.language", "JAVA")
	v.SetDefault("participant.debounce", "300ms")
	v.SetDefault("participant.video", true)
	v.SetDefault("participant.audio", true)
	v.SetDefault("participant.selftest_duration", "3s")
	v.SetDefault("participant.http_timeout", "5s")
	v.SetDefault("participant.log_level", "info")

	readFile(v)

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil {
				return
			}
			key := "participant." + strings.ReplaceAll(f.Name, "-", "_")
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	// Unmarshal, unlike UnmarshalKey, sees flag-bound nested keys.
	var wrapper struct {
		Participant Participant `mapstructure:"participant"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse participant config: %w", err)
	}
	return &wrapper.Participant, nil
}
