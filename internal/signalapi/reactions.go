package signalapi

import (
	"context"
	"fmt"

	"github.com/cornellsh/signal-client/internal/httpclient"
)

// ReactionRequest mirrors spec.md §6's reaction body. Exactly one of
// Recipient or Group is populated by the caller, matching the gateway's
// `recipient|group` union.
type ReactionRequest struct {
	Recipient       string `json:"recipient,omitempty"`
	Group           string `json:"group,omitempty"`
	Emoji           string `json:"emoji"`
	TargetAuthor    string `json:"target_author"`
	TargetTimestamp int64  `json:"target_timestamp"`
}

// ReactionsClient wraps reaction send/remove, grounded on the original's
// reactions_client.py.
type ReactionsClient struct {
	http *httpclient.Client
}

// Send issues POST /v1/reactions/<number>.
func (c *ReactionsClient) Send(ctx context.Context, number string, req ReactionRequest) error {
	path := fmt.Sprintf("/v1/reactions/%s", number)
	return c.http.Do(ctx, "POST", path, httpclient.RequestOptions{Body: req}, nil)
}

// Remove issues DELETE /v1/reactions/<number>.
func (c *ReactionsClient) Remove(ctx context.Context, number string, req ReactionRequest) error {
	path := fmt.Sprintf("/v1/reactions/%s", number)
	return c.http.Do(ctx, "DELETE", path, httpclient.RequestOptions{Body: req}, nil)
}
