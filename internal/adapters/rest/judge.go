package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Interview/internal/domain"
)

var ErrNoJudge = errors.New("no judge configured")

// Judge posts submissions to the grading collaborator. The verdict body is
// returned untouched so the peer sees exactly what the judge said.
type Judge struct {
	Client *Client
	URL    string
}

func (j *Judge) Evaluate(ctx context.Context, sub domain.Submission) (json.RawMessage, error) {
	if j.URL == "" {
		return nil, ErrNoJudge
	}
	data, err := j.Client.do(ctx, "POST", j.URL, sub)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("judge returned invalid json")
	}
	return json.RawMessage(data), nil
}
