package claude

import "sync"

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns a process-wide client, constructing it on first use with
// opts. Once built, later calls return the same client and ignore their
// options. A failed construction is not remembered.
func Default(opts ...Option) (*Client, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultClient != nil {
		return defaultClient, nil
	}
	c, err := NewClient(opts...)
	if err != nil {
		return nil, err
	}
	defaultClient = c
	return c, nil
}

func resetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultClient = nil
}
