// Package demostf is a typed client for the demos.tf API, a service
// storing Team Fortress 2 replay files and their metadata.
//
// # Building a Client
//
// Use [New] with functional options:
//
//	c, err := demostf.New(
//		demostf.WithTimeout(10 * time.Second),
//		demostf.WithUserAgent("myapp/1.0"),
//	)
//
// Or read configuration from DEMOSTF_* environment variables with
// [FromEnv].
//
// # Listing and Fetching
//
//	demos, err := c.List(ctx, demostf.ListParams{}.WithOrder(demostf.Ascending), 1)
//
// Demos obtained from a list omit their player roster; [Demo.GetPlayers]
// loads it transparently. Likewise a list demo's uploader is an id-only
// [UserRef] that [UserRef.Resolve] expands on demand.
//
// # Downloading
//
// [Demo.Save] streams the file content to a writer while verifying its
// MD5 hash; [Demo.Download] returns the raw stream for callers that
// handle verification themselves. Download deadlines scale with the
// demo's recorded duration, see the download package.
//
// # Errors
//
// Every failure maps onto a closed taxonomy: sentinel errors such as
// [ErrInvalidPage] and [ErrTimeout], typed errors such as
// [DemoNotFoundError], and [RequestError] as the generic transport
// fallback. The client never retries and never panics on malformed
// remote input.
package demostf
