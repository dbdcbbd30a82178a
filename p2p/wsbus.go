package p2p

import (
	"sync"

	"github.com/gorilla/websocket"
)

/*
WSBus is a minimal websocket-backed Publisher plus a blocking read loop,
grounded on the teacher's WebsocketConnection (ecal/websocket.go): one
read mutex, one write mutex, one connection, since gorilla/websocket
supports at most one concurrent reader and one concurrent writer
(DOMAIN STACK).
*/
type WSBus struct {
	conn   *websocket.Conn
	rmutex sync.Mutex
	wmutex sync.Mutex
}

/*
NewWSBus wraps an established websocket connection.
*/
func NewWSBus(conn *websocket.Conn) *WSBus {
	return &WSBus{conn: conn}
}

/*
Publish writes msg as a single text frame.
*/
func (w *WSBus) Publish(msg []byte) {
	w.wmutex.Lock()
	defer w.wmutex.Unlock()
	w.conn.WriteMessage(websocket.TextMessage, msg)
}

/*
ReadLoop blocks reading text frames and invokes handler for each, until
the connection errors or closes. Run on its own goroutine by the caller.
*/
func (w *WSBus) ReadLoop(handler func([]byte)) error {
	for {
		w.rmutex.Lock()
		_, msg, err := w.conn.ReadMessage()
		w.rmutex.Unlock()

		if err != nil {
			return &Error{Detail: err.Error()}
		}
		handler(msg)
	}
}

/*
Close closes the underlying connection.
*/
func (w *WSBus) Close() error {
	return w.conn.Close()
}
