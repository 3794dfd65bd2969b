// Package buttons turns device key presses into watch face input events.
package buttons

import (
	"context"
	"sync"
)

type Event string

const (
	Tap           Event = "tap"
	ToggleAmbient Event = "toggle-ambient"
	ToggleVisible Event = "toggle-visible"
	Exit          Event = "exit"
)

type Buttons interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan Event
}

// ChannelButtons is fed by Press. The simulator and tests use it.
type ChannelButtons struct {
	ch   chan Event
	once sync.Once
}

func NewChannelButtons() *ChannelButtons { return &ChannelButtons{ch: make(chan Event, 8)} }

func (b *ChannelButtons) Start(ctx context.Context) error { return nil }

func (b *ChannelButtons) Stop() error {
	b.once.Do(func() { close(b.ch) })
	return nil
}

func (b *ChannelButtons) Events() <-chan Event { return b.ch }

// Press queues ev, dropping it when the queue is full.
func (b *ChannelButtons) Press(ev Event) bool {
	select {
	case b.ch <- ev:
		return true
	default:
		return false
	}
}

// TapType is the phase of a touch gesture reported by the host.
type TapType int

const (
	TapTouch TapType = iota
	TapTouchCancel
	TapTap
)

func (t TapType) String() string {
	switch t {
	case TapTouch:
		return "touch"
	case TapTouchCancel:
		return "touch-cancel"
	case TapTap:
		return "tap"
	default:
		return "unknown"
	}
}

// ParseTapType is the inverse of TapType.String.
func ParseTapType(s string) (TapType, bool) {
	for _, t := range []TapType{TapTouch, TapTouchCancel, TapTap} {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}
