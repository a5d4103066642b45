package inspect

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/templatestore/pkg/store"
)

// Message is one frame sent to WebSocket clients.
type Message struct {
	// Type is "hello" for the first frame and "event" afterwards.
	Type string `json:"type"`

	// Client is the connection ID, sent with hello.
	Client string `json:"client,omitempty"`

	// Keys is the number of stored keys at connect time, sent with hello.
	Keys int `json:"keys,omitempty"`

	Kind     store.EventKind `json:"kind,omitempty"`
	Key      store.Key       `json:"key,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
	Notified int             `json:"notified,omitempty"`
	At       *time.Time      `json:"at,omitempty"`
}

func (i *Inspector) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := i.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		i.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	log := i.logger.With("client", id)

	events := make(chan store.Event, i.config.EventBuffer)
	var dropped atomic.Int64
	cancel := i.store.Subscribe(func(ev store.Event) {
		select {
		case events <- ev:
		default:
			dropped.Add(1)
		}
	})

	i.clients.Add(1)
	log.Info("inspector client connected")

	defer func() {
		cancel()
		conn.Close()
		i.clients.Add(-1)
		log.Info("inspector client disconnected", "dropped", dropped.Load())
	}()

	// The read loop only detects the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := i.send(conn, Message{Type: "hello", Client: id, Keys: i.store.Len()}); err != nil {
		log.Debug("write error", "error", err)
		return
	}

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			at := ev.At
			msg := Message{
				Type:     "event",
				Kind:     ev.Kind,
				Key:      ev.Key,
				Notified: ev.Notified,
				At:       &at,
			}
			if ev.Kind == store.EventSet {
				msg.Value = encodeValue(ev.Value)
			}
			if err := i.send(conn, msg); err != nil {
				log.Debug("write error", "error", err)
				return
			}
		}
	}
}

func (i *Inspector) send(conn *websocket.Conn, msg Message) error {
	conn.SetWriteDeadline(time.Now().Add(i.config.WriteTimeout))
	return conn.WriteJSON(msg)
}
