package demostf

import (
	"context"
	"io"

	"github.com/demostf/go-client/download"
)

// Resolve returns the embedded user without any I/O when the reference
// holds one, and fetches the user from the API otherwise. Results are
// never cached: resolving an id-only reference repeats the fetch on
// every call.
func (r UserRef) Resolve(ctx context.Context, client *Client) (User, error) {
	if user, ok := r.User(); ok {
		return user, nil
	}

	return client.GetUser(ctx, r.id)
}

// GetPlayers returns the demo's player list, fetching the full demo
// from the API when the list was not populated (demos obtained via
// [Client.List] never carry players). The fetched list is not stored
// back on the demo, so repeated calls on a list-obtained demo repeat
// the fetch.
func (d *Demo) GetPlayers(ctx context.Context, client *Client) ([]Player, error) {
	if d.Players != nil {
		return d.Players, nil
	}

	demo, err := client.Get(ctx, d.ID)
	if err != nil {
		return nil, err
	}

	return demo.Players, nil
}

// Download retrieves the demo's file content as a lazy,
// single-consumption stream. No verification is performed; use
// [Demo.Save] when the content hash should be checked.
func (d *Demo) Download(ctx context.Context, client *Client) (*download.Stream, error) {
	client.logger.Debug("starting download", "id", d.ID, "url", d.URL)

	return client.downloadDemo(ctx, d.URL, d.Duration)
}

// Save downloads the demo's file content into w, verifying the MD5
// digest of the received bytes against [Demo.Hash]. Chunks are written
// to w as they arrive, so a failed transfer leaves its partial bytes in
// place; a digest mismatch after a complete transfer surfaces as
// [ErrHashMismatch].
func (d *Demo) Save(ctx context.Context, client *Client, w io.Writer) error {
	client.logger.Debug("starting download", "id", d.ID, "url", d.URL)

	return client.saveDemo(ctx, d, w)
}
