// Package signalapi implements the thin REST resource clients that sit on
// top of internal/httpclient (spec.md §6 Egress — REST). Per spec.md §1's
// non-goals, the concrete per-endpoint URL tables beyond the fields named in
// §6 are out of scope; these wrappers exist to exercise the HTTP core
// end-to-end, grounded on the original's one-client-per-resource layout
// (messages_client.py, reactions_client.py, receipts_client.py, ...) and the
// teacher's internal/service/*_service.go thin-wrapper-over-a-shared-core
// convention.
package signalapi

import (
	"context"

	"github.com/cornellsh/signal-client/internal/httpclient"
)

// Clients aggregates every resource client over one shared httpclient.Client
// — mirroring the original's single aiohttp.ClientSession threaded through
// every *_client.py constructor.
type Clients struct {
	Messages     *MessagesClient
	Reactions    *ReactionsClient
	Receipts     *ReceiptsClient
	Attachments  *AttachmentsClient
	Accounts     *ResourceClient
	Contacts     *ResourceClient
	Devices      *ResourceClient
	Groups       *ResourceClient
	Identities   *ResourceClient
	Profiles     *ResourceClient
	Search       *ResourceClient
	StickerPacks *ResourceClient
}

// New constructs every resource client over http. maxAttachmentBytes bounds
// AttachmentsClient.Get (0 disables the bound).
func New(http *httpclient.Client, maxAttachmentBytes int64) *Clients {
	return &Clients{
		Messages:     &MessagesClient{http: http},
		Reactions:    &ReactionsClient{http: http},
		Receipts:     &ReceiptsClient{http: http},
		Attachments:  &AttachmentsClient{http: http, maxBytes: maxAttachmentBytes},
		Accounts:     newResourceClient(http, "/v1/accounts"),
		Contacts:     newResourceClient(http, "/v1/contacts"),
		Devices:      newResourceClient(http, "/v1/devices"),
		Groups:       newResourceClient(http, "/v1/groups"),
		Identities:   newResourceClient(http, "/v1/identities"),
		Profiles:     newResourceClient(http, "/v1/profiles"),
		Search:       newResourceClient(http, "/v1/search"),
		StickerPacks: newResourceClient(http, "/v1/sticker-packs"),
	}
}

// Send implements ctxutil.Sender, delegating to Messages.Send with no
// optional fields set.
func (c *Clients) Send(ctx context.Context, number string, recipients []string, text string) (int64, error) {
	return c.Messages.Send(ctx, number, SendRequest{Recipients: recipients, Message: text})
}

// React implements ctxutil.Sender, delegating to Reactions.Send.
func (c *Clients) React(ctx context.Context, number, recipient, emoji, targetAuthor string, targetTimestamp int64) error {
	return c.Reactions.Send(ctx, number, ReactionRequest{
		Recipient:       recipient,
		Emoji:           emoji,
		TargetAuthor:    targetAuthor,
		TargetTimestamp: targetTimestamp,
	})
}
