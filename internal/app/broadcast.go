package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Conn is an outbound message sink for one client connection.
// Send must not block; it reports false when the peer is closed or not ready.
type Conn interface {
	Send(data []byte) bool
}

// SendTo serializes msg and delivers it to a single connection. Closed peers
// are skipped silently.
func SendTo(conn Conn, msg any) {
	if conn == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("marshal outbound message")
		return
	}
	conn.Send(data)
}

// Broadcast serializes msg once and delivers the same bytes to every connection.
func Broadcast(conns []Conn, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("marshal broadcast message")
		return
	}
	for _, conn := range conns {
		if conn == nil {
			continue
		}
		conn.Send(data)
	}
}
