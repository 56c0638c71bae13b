package rest

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Interview/internal/core"
)

// Rooms reads room occupancy from the relay.
type Rooms struct {
	Client *Client
	URL    string
}

func (r *Rooms) List(ctx context.Context) ([]core.RoomInfo, error) {
	data, err := r.Client.do(ctx, "GET", r.URL, nil)
	if err != nil {
		return nil, err
	}
	var out []core.RoomInfo
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
