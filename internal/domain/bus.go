package domain

import (
	"context"
	"time"
)

// PriceMirror exposes the latest mid prices to out-of-process consumers (the
// dashboard, ad-hoc tooling). It is a live mirror, not persistence: nothing
// is read back on restart.
type PriceMirror interface {
	SetPrice(ctx context.Context, token string, price float64, ts time.Time) error
}

// EventBus pushes engine events (signals, position lifecycle) to external
// subscribers.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// NopMirror is used when no mirror backend is configured.
type NopMirror struct{}

func (NopMirror) SetPrice(context.Context, string, float64, time.Time) error { return nil }

// NopBus is used when no bus backend is configured.
type NopBus struct{}

func (NopBus) Publish(context.Context, string, []byte) error      { return nil }
func (NopBus) StreamAppend(context.Context, string, []byte) error { return nil }

var (
	_ PriceMirror = NopMirror{}
	_ EventBus    = NopBus{}
)
