package bus

import (
	"context"
	"fmt"
	"net"

	"github.com/gorilla/websocket"
)

// EventsPath is the HTTP path of the snapshot feed served on the events socket.
const EventsPath = "/events"

// DialEvents opens the daemon's websocket feed over the events unix socket.
func DialEvents(ctx context.Context) (*websocket.Conn, error) {
	sp, err := EventsSockPath()
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", sp)
		},
		HandshakeTimeout: dialTimeout,
	}

	// the host is ignored, every connection goes to the socket
	conn, _, err := dialer.DialContext(ctx, "ws://"+AppName+EventsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("dial events: %w", err)
	}
	return conn, nil
}
