package signalapi

import (
	"context"
	"fmt"

	"github.com/cornellsh/signal-client/internal/httpclient"
)

// SendRequest mirrors spec.md §6's POST /v2/send body.
type SendRequest struct {
	Recipients        []string `json:"recipients"`
	Message           string   `json:"message"`
	Base64Attachments []string `json:"base64_attachments,omitempty"`
	QuoteTimestamp    int64    `json:"quote_timestamp,omitempty"`
	QuoteAuthor       string   `json:"quote_author,omitempty"`
	QuoteMessage      string   `json:"quote_message,omitempty"`
	Mentions          []string `json:"mentions,omitempty"`
	EditTimestamp     int64    `json:"edit_timestamp,omitempty"`
	ViewOnce          bool     `json:"view_once,omitempty"`
}

// SendResponse mirrors spec.md §6's POST /v2/send response.
type SendResponse struct {
	Timestamp int64 `json:"timestamp"`
}

// RemoteDeleteRequest mirrors spec.md §6's DELETE /v1/remote-delete/<number>
// body.
type RemoteDeleteRequest struct {
	Recipient string `json:"recipient,omitempty"`
	Group     string `json:"group,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// MessagesClient wraps outbound message send/delete, grounded on the
// original's messages_client.py.
type MessagesClient struct {
	http *httpclient.Client
}

// Send issues POST /v2/send and returns the gateway-assigned timestamp.
func (c *MessagesClient) Send(ctx context.Context, number string, req SendRequest) (int64, error) {
	reqBody := map[string]any{
		"number":     number,
		"recipients": req.Recipients,
		"message":    req.Message,
	}
	if len(req.Base64Attachments) > 0 {
		reqBody["base64_attachments"] = req.Base64Attachments
	}
	if req.QuoteTimestamp != 0 {
		reqBody["quote_timestamp"] = req.QuoteTimestamp
		reqBody["quote_author"] = req.QuoteAuthor
		reqBody["quote_message"] = req.QuoteMessage
	}
	if len(req.Mentions) > 0 {
		reqBody["mentions"] = req.Mentions
	}
	if req.EditTimestamp != 0 {
		reqBody["edit_timestamp"] = req.EditTimestamp
	}
	if req.ViewOnce {
		reqBody["view_once"] = req.ViewOnce
	}

	var resp SendResponse
	if err := c.http.Do(ctx, "POST", "/v2/send", httpclient.RequestOptions{Body: reqBody}, &resp); err != nil {
		return 0, err
	}
	return resp.Timestamp, nil
}

// RemoteDelete issues DELETE /v1/remote-delete/<number>.
func (c *MessagesClient) RemoteDelete(ctx context.Context, number string, req RemoteDeleteRequest) error {
	path := fmt.Sprintf("/v1/remote-delete/%s", number)
	return c.http.Do(ctx, "DELETE", path, httpclient.RequestOptions{Body: req}, nil)
}

// SetTypingIndicator issues PUT /v1/typing-indicator/<number>, supplemented
// from the original's messages_client.py (not named in spec.md §6 but
// exercised by the same MessagesClient the spec does name).
func (c *MessagesClient) SetTypingIndicator(ctx context.Context, number, recipient string) error {
	path := fmt.Sprintf("/v1/typing-indicator/%s", number)
	return c.http.Do(ctx, "PUT", path, httpclient.RequestOptions{Body: map[string]string{"recipient": recipient}}, nil)
}

// UnsetTypingIndicator issues DELETE /v1/typing-indicator/<number>.
func (c *MessagesClient) UnsetTypingIndicator(ctx context.Context, number, recipient string) error {
	path := fmt.Sprintf("/v1/typing-indicator/%s", number)
	return c.http.Do(ctx, "DELETE", path, httpclient.RequestOptions{Body: map[string]string{"recipient": recipient}}, nil)
}
