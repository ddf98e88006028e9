package broker

import "context"

// HashStore is the broker's only view of the backing key/value store:
// a single read operation. The gateway never writes through this
// interface.
type HashStore interface {
	// HGetAll returns the current contents of hashName, or an empty
	// map if the hash does not exist.
	HGetAll(ctx context.Context, hashName string) (map[string]string, error)
}
