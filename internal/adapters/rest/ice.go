package rest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/Interview/internal/adapters/rtc"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// iceServer accepts "urls" as either a string or a list, as browsers do.
type iceServer struct {
	URLs       json.RawMessage `json:"urls"`
	Username   string          `json:"username"`
	Credential string          `json:"credential"`
}

func (s iceServer) toPion() (webrtc.ICEServer, error) {
	var urls []string
	if err := json.Unmarshal(s.URLs, &urls); err != nil {
		var one string
		if err := json.Unmarshal(s.URLs, &one); err != nil {
			return webrtc.ICEServer{}, fmt.Errorf("bad urls %s", s.URLs)
		}
		urls = []string{one}
	}
	if len(urls) == 0 {
		return webrtc.ICEServer{}, fmt.Errorf("empty urls")
	}
	out := webrtc.ICEServer{URLs: urls, Username: s.Username}
	if s.Credential != "" {
		out.Credential = s.Credential
	}
	return out, nil
}

// ICEDiscovery fetches the ICE server list. It never fails: any error,
// including an empty list, yields the default STUN pair.
type ICEDiscovery struct {
	Client *Client
	URL    string
}

func (d *ICEDiscovery) Servers(ctx context.Context) ([]webrtc.ICEServer, bool) {
	logger := log.With().Str("module", "rest.ice").Str("url", d.URL).Logger()
	servers, err := d.fetch(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("ICE discovery failed, using default STUN servers")
		return rtc.DefaultICEServers(), false
	}
	if len(servers) == 0 {
		logger.Warn().Msg("ICE discovery returned nothing, using default STUN servers")
		return rtc.DefaultICEServers(), false
	}
	logger.Info().Int("servers", len(servers)).Msg("ICE servers discovered")
	return servers, true
}

func (d *ICEDiscovery) fetch(ctx context.Context) ([]webrtc.ICEServer, error) {
	if d.URL == "" {
		return nil, fmt.Errorf("no discovery url")
	}
	data, err := d.Client.do(ctx, "GET", d.URL, nil)
	if err != nil {
		return nil, err
	}
	var raw []iceServer
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]webrtc.ICEServer, 0, len(raw))
	for _, s := range raw {
		srv, err := s.toPion()
		if err != nil {
			return nil, err
		}
		out = append(out, srv)
	}
	return out, nil
}
