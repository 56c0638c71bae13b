package rest

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Interview/internal/domain"
)

type Catalog struct {
	Client *Client
	URL    string
}

func (c *Catalog) Problems(ctx context.Context) ([]domain.Problem, error) {
	data, err := c.Client.do(ctx, "GET", c.URL, nil)
	if err != nil {
		return nil, err
	}
	var out []domain.Problem
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
