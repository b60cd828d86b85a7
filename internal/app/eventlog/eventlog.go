/*
Package eventlog records every persisted message on an append-only stream for downstream
consumers such as search indexing or analytics. Recording is best-effort.
*/
package eventlog

import (
	"context"

	"quicktalk/internal/app/message"
)

// Recorder appends persisted messages to the event stream.
type Recorder interface {
	Record(ctx context.Context, m message.Message) error
	Close() error
}

// Noop discards every record. It is used when no stream is configured.
type Noop struct{}

func (Noop) Record(context.Context, message.Message) error { return nil }

func (Noop) Close() error { return nil }
