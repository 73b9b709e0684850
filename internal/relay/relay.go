package relay

// A live client connection as seen by the relay. Implemented by the
// websocket transport; Send must not block (drop when the peer cannot
// keep up — delivery is at-most-once and a lagging client resyncs on
// its next join).
type Conn interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// One connection's protocol state. A session belongs to at most one
// room at a time; roomID is empty and user is zero outside a room.
type session struct {
	conn   Conn
	roomID string
	userID string
}

func (s *session) inRoom() bool {
	return s.roomID != ""
}
