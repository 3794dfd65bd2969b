// Package companion receives data items published by the paired phone.
//
// Items are flat key/value maps addressed by a path such as "/weather". The
// transport is MQTT: a item at path p lives on topic <prefix><p>, a JSON
// object body is a change, and an empty body (a cleared retained message) is a
// deletion.
package companion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rook-computer/watchface/internal/config"
)

type EventType int

const (
	EventChanged EventType = iota + 1
	EventDeleted
)

func (t EventType) String() string {
	switch t {
	case EventChanged:
		return "changed"
	case EventDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// DataEvent is one change to a data item.
type DataEvent struct {
	Type EventType
	Path string
	Data map[string]any
}

// Listener receives events. It is called on the transport's goroutine.
type Listener func(DataEvent)

// Channel is a subscription to data items under one path.
type Channel interface {
	Connect(ctx context.Context, listener Listener) error
	Close() error
	Connected() bool
}

// ParseEvent turns a message body received for path into an event.
func ParseEvent(path string, payload []byte) (DataEvent, error) {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return DataEvent{Type: EventDeleted, Path: path}, nil
	}
	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return DataEvent{}, fmt.Errorf("decode data item %s: %w", path, err)
	}
	return DataEvent{Type: EventChanged, Path: path, Data: data}, nil
}

// Topic joins a topic prefix and an item path.
func Topic(prefix, path string) string {
	prefix = strings.TrimRight(prefix, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return prefix + path
}

// PathFromTopic is the inverse of Topic.
func PathFromTopic(prefix, topic string) string {
	prefix = strings.TrimRight(prefix, "/")
	path := strings.TrimPrefix(topic, prefix)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// PairingURL describes where the phone should publish: the broker URL with the
// item topic as a query parameter. It is empty when sync is disabled.
func PairingURL(cfg config.SyncConfig) string {
	if !cfg.Enabled() {
		return ""
	}
	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	u, err := url.Parse(broker)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("topic", Topic(cfg.TopicPrefix, cfg.Path))
	u.RawQuery = q.Encode()
	return u.String()
}
