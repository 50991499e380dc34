package ws

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeConn struct {
	events []Event
	err    error
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, v.(Event))
	return nil
}

func TestRegistry_ProgressDelivery(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	conn := &fakeConn{}
	r.Register("up-1", conn)

	r.SendProgress("up-1", 25)
	r.SendProgress("up-1", 50)

	require.Len(t, conn.events, 2)
	require.Equal(t, Event{Type: "progress", Percent: 25}, conn.events[0])
	require.Equal(t, Event{Type: "progress", Percent: 50}, conn.events[1])
}

func TestRegistry_AbsentConnectionDropsSilently(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))

	// No registration, no panic, nothing delivered anywhere.
	r.SendProgress("up-unknown", 10)
	r.SendComplete("up-unknown", nil)
	r.SendError("up-unknown", "boom")
}

func TestRegistry_TerminalEventsDeregister(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	conn := &fakeConn{}
	r.Register("up-1", conn)

	r.SendComplete("up-1", map[string]string{"id": "f-1"})
	r.SendProgress("up-1", 99) // after terminal: dropped

	require.Len(t, conn.events, 1)
	require.Equal(t, "complete", conn.events[0].Type)

	conn2 := &fakeConn{}
	r.Register("up-2", conn2)
	r.SendError("up-2", "remote store rejected chunk")
	r.SendError("up-2", "again")

	require.Len(t, conn2.events, 1)
	require.Equal(t, Event{Type: "error", Message: "remote store rejected chunk"}, conn2.events[0])
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	old := &fakeConn{}
	replacement := &fakeConn{}
	r.Register("up-1", old)
	r.Register("up-1", replacement)

	r.SendProgress("up-1", 42)

	require.Empty(t, old.events)
	require.Len(t, replacement.events, 1)
}

func TestRegistry_UnregisterStopsDelivery(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	conn := &fakeConn{}
	r.Register("up-1", conn)
	r.Unregister("up-1")

	r.SendProgress("up-1", 10)
	require.Empty(t, conn.events)
}

func TestRegistry_DeadConnectionDropped(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	conn := &fakeConn{err: errors.New("connection reset")}
	r.Register("up-1", conn)

	r.SendProgress("up-1", 10)

	// The failed write evicted the mapping; a recovered conn under the same
	// id would need to re-register.
	conn.err = nil
	r.SendProgress("up-1", 20)
	require.Empty(t, conn.events)
}
