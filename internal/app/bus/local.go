package bus

import "context"

// LocalBus delivers every request synchronously to its handler.
type LocalBus struct {
	handler Handler
}

// NewLocalBus returns a bus that hands requests to h.
func NewLocalBus(h Handler) *LocalBus {
	return &LocalBus{handler: h}
}

func (b *LocalBus) Publish(_ context.Context, req RouteRequest) error {
	b.handler(req)
	return nil
}

func (b *LocalBus) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (b *LocalBus) Close() error { return nil }
