package signalapi

import (
	"context"
	"fmt"

	"github.com/cornellsh/signal-client/internal/httpclient"
)

// AttachmentDownloadError is raised when a download exceeds maxBytes or the
// gateway returns a non-2xx status, per spec.md §7's error kind list.
type AttachmentDownloadError struct {
	ID     string
	Reason string
}

func (e *AttachmentDownloadError) Error() string {
	return fmt.Sprintf("signalapi: attachment %s: %s", e.ID, e.Reason)
}

// AttachmentsClient implements the bounded-size attachment download helper
// (SPEC_FULL.md's supplemented feature), grounded on the original's
// attachments_client.py.
type AttachmentsClient struct {
	http *httpclient.Client

	// maxBytes bounds Get's response size; zero disables the bound.
	maxBytes int64
}

// List issues GET /v1/attachments.
func (c *AttachmentsClient) List(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	err := c.http.Do(ctx, "GET", "/v1/attachments", httpclient.RequestOptions{}, &out)
	return out, err
}

// Get downloads the attachment identified by id and, when maxBytes is
// configured, returns an AttachmentDownloadError for a body larger than
// maxBytes. The whole body is read into memory before its size is checked.
func (c *AttachmentsClient) Get(ctx context.Context, id string) ([]byte, error) {
	path := fmt.Sprintf("/v1/attachments/%s", id)
	body, err := c.http.DoRaw(ctx, "GET", path, httpclient.RequestOptions{})
	if err != nil {
		return nil, &AttachmentDownloadError{ID: id, Reason: err.Error()}
	}
	if c.maxBytes > 0 && int64(len(body)) > c.maxBytes {
		return nil, &AttachmentDownloadError{
			ID:     id,
			Reason: fmt.Sprintf("response of %d bytes exceeds max %d", len(body), c.maxBytes),
		}
	}
	return body, nil
}

// Remove issues DELETE /v1/attachments/<id>.
func (c *AttachmentsClient) Remove(ctx context.Context, id string) error {
	path := fmt.Sprintf("/v1/attachments/%s", id)
	return c.http.Do(ctx, "DELETE", path, httpclient.RequestOptions{}, nil)
}
