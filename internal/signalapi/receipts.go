package signalapi

import (
	"context"
	"fmt"

	"github.com/cornellsh/signal-client/internal/httpclient"
)

// ReceiptRequest mirrors spec.md §6's POST /v1/receipts/<number> body.
type ReceiptRequest struct {
	Recipient string `json:"recipient"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type,omitempty"` // read, viewed; default delivered
}

// ReceiptsClient wraps read/delivery receipt delivery, grounded on the
// original's receipts_client.py.
type ReceiptsClient struct {
	http *httpclient.Client
}

// Send issues POST /v1/receipts/<number>.
func (c *ReceiptsClient) Send(ctx context.Context, number string, req ReceiptRequest) error {
	path := fmt.Sprintf("/v1/receipts/%s", number)
	return c.http.Do(ctx, "POST", path, httpclient.RequestOptions{Body: req}, nil)
}
