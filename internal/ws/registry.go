package ws

import (
	"sync"

	"go.uber.org/zap"
)

// Event is the wire format pushed over an upload's notification connection.
type Event struct {
	Type    string      `json:"type"` // "progress", "complete" or "error"
	Percent int         `json:"percent,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Conn is the minimal connection surface the registry pushes to. Satisfied by
// *websocket.Conn.
type Conn interface {
	WriteJSON(v interface{}) error
}

// Registry maps upload ids to their open notification connections. Delivery
// is at-most-once: events for an absent or dead connection are dropped, never
// buffered. The upload itself does not depend on anything here succeeding.
type Registry struct {
	mu     sync.Mutex
	conns  map[string]Conn
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{conns: make(map[string]Conn), logger: logger}
}

// Register stores the connection for an upload id, replacing any prior one.
func (r *Registry) Register(uploadID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[uploadID] = conn
	r.logger.Debug("notification connection registered", zap.String("upload_id", uploadID))
}

// Unregister removes the mapping when the client side closes the connection.
func (r *Registry) Unregister(uploadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, uploadID)
}

// SendProgress pushes a progress percentage to the upload's connection.
func (r *Registry) SendProgress(uploadID string, percent int) {
	r.send(uploadID, Event{Type: "progress", Percent: percent}, false)
}

// SendComplete pushes the terminal success event and closes the logical
// session.
func (r *Registry) SendComplete(uploadID string, payload interface{}) {
	r.send(uploadID, Event{Type: "complete", Payload: payload}, true)
}

// SendError pushes the terminal failure event and closes the logical session.
func (r *Registry) SendError(uploadID string, message string) {
	r.send(uploadID, Event{Type: "error", Message: message}, true)
}

func (r *Registry) send(uploadID string, ev Event, terminal bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[uploadID]
	if !ok {
		return
	}
	if err := conn.WriteJSON(ev); err != nil {
		// Dead connection; drop it so later sends don't try again.
		r.logger.Debug("notification write failed, dropping connection",
			zap.String("upload_id", uploadID), zap.Error(err))
		delete(r.conns, uploadID)
		return
	}
	if terminal {
		delete(r.conns, uploadID)
	}
}
