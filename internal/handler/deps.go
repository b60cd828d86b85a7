package handler

import (
	"context"
	"time"

	"quicktalk/internal/app/chat"
	"quicktalk/internal/app/message"
	"quicktalk/internal/app/presence"
	"quicktalk/internal/app/storage"
	"quicktalk/internal/app/user"
	"quicktalk/internal/configs"
	"quicktalk/internal/pkg/limiter"
	"quicktalk/internal/pkg/pow"
)

// AppDeps is everything the HTTP and websocket handlers need.
type AppDeps struct {
	Config *configs.AppConfig

	Users      user.Repository
	Messages   *message.Store
	Aggregator *chat.Aggregator
	Sender     chat.Sender
	Router     *presence.Router

	Pow            *pow.Manager
	SendLimiter    *limiter.FixedWindow
	ConnectLimiter *limiter.IPRateLimiter

	// StorageService is nil when uploads are disabled.
	StorageService storage.StorageService

	// BaseContext outlives single requests; websocket clients run under it.
	BaseContext context.Context

	// Now is the clock used for user timestamps.
	Now func() time.Time
}

func (d *AppDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *AppDeps) baseContext() context.Context {
	if d.BaseContext != nil {
		return d.BaseContext
	}
	return context.Background()
}
