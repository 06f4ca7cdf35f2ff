package metadata

import "context"

// Store is a content-addressed store for encrypted prescription payloads.
// The ledger only ever holds the returned CID; the payload bytes stay off
// chain.
type Store interface {
	// Put stores data and returns its content identifier.
	Put(ctx context.Context, data []byte) (string, error)
	// Get retrieves the data for a CID.
	Get(ctx context.Context, cid string) ([]byte, error)
}
