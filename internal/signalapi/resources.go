package signalapi

import (
	"context"
	"fmt"

	"github.com/cornellsh/signal-client/internal/httpclient"
)

// ResourceClient is a thin, generic CRUD wrapper for the auxiliary gateway
// resources spec.md §1 scopes out of the dedicated-type treatment given to
// messages/reactions/receipts (accounts, contacts, devices, groups,
// identities, profiles, search, sticker packs). Grounded on the teacher's
// internal/service/*_service.go convention of thin methods over a shared
// core, and the original's per-resource *_client.py files which all follow
// the same list/get/create/delete shape over aiohttp.
type ResourceClient struct {
	http     *httpclient.Client
	basePath string
}

func newResourceClient(http *httpclient.Client, basePath string) *ResourceClient {
	return &ResourceClient{http: http, basePath: basePath}
}

// List issues GET <basePath>.
func (c *ResourceClient) List(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	err := c.http.Do(ctx, "GET", c.basePath, httpclient.RequestOptions{}, &out)
	return out, err
}

// Get issues GET <basePath>/<id>.
func (c *ResourceClient) Get(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	path := fmt.Sprintf("%s/%s", c.basePath, id)
	err := c.http.Do(ctx, "GET", path, httpclient.RequestOptions{}, &out)
	return out, err
}

// Create issues POST <basePath>.
func (c *ResourceClient) Create(ctx context.Context, body any) (map[string]any, error) {
	var out map[string]any
	err := c.http.Do(ctx, "POST", c.basePath, httpclient.RequestOptions{Body: body}, &out)
	return out, err
}

// Update issues PUT <basePath>/<id>.
func (c *ResourceClient) Update(ctx context.Context, id string, body any) (map[string]any, error) {
	var out map[string]any
	path := fmt.Sprintf("%s/%s", c.basePath, id)
	err := c.http.Do(ctx, "PUT", path, httpclient.RequestOptions{Body: body}, &out)
	return out, err
}

// Delete issues DELETE <basePath>/<id>.
func (c *ResourceClient) Delete(ctx context.Context, id string) error {
	path := fmt.Sprintf("%s/%s", c.basePath, id)
	return c.http.Do(ctx, "DELETE", path, httpclient.RequestOptions{}, nil)
}
