package session_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"workchat/client/internal/models"
	"workchat/client/internal/session"
	"workchat/client/internal/transport"
)

type MockConn struct {
	mock.Mock
}

func (m *MockConn) Send(envelope models.PublishEnvelope) error {
	args := m.Called(envelope)
	return args.Error(0)
}

func (m *MockConn) SendReadReceipt(memberID string) error {
	args := m.Called(memberID)
	return args.Error(0)
}

func (m *MockConn) Disconnect() {
	m.Called()
}

func (m *MockConn) State() transport.ConnectionState {
	args := m.Called()
	return args.Get(0).(transport.ConnectionState)
}

// newConnectedConn returns a conn that accepts everything.
func newConnectedConn() *MockConn {
	conn := &MockConn{}
	conn.On("Send", mock.Anything).Return(nil)
	conn.On("SendReadReceipt", mock.Anything).Return(nil)
	conn.On("Disconnect").Return()
	conn.On("State").Return(transport.StateConnected)
	return conn
}

// fakeConnector hands out a fixed conn and captures the handlers so
// tests can inject inbound frames.
type fakeConnector struct {
	conn session.Conn
	err  error

	mu       sync.Mutex
	handlers transport.Handlers
	calls    int
}

func (f *fakeConnector) Connect(ctx context.Context, memberID, roomID string, kind models.TopicKind, handlers transport.Handlers) (session.Conn, error) {
	f.mu.Lock()
	f.handlers = handlers
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.conn, nil
}

func (f *fakeConnector) injectFrame(frame models.InboundFrame) {
	f.mu.Lock()
	handlers := f.handlers
	f.mu.Unlock()
	handlers.OnFrame(frame)
}

// fakeAPI serves canned history and records room creations. A non-nil
// gate makes History block until the gate closes, which lets tests
// close a room mid-flight.
type fakeAPI struct {
	history    []models.Message
	historyErr error
	gate       chan struct{}
	started    chan struct{}
	startOnce  sync.Once

	mu          sync.Mutex
	created     models.Conversation
	createErr   error
	createCalls int
}

func (f *fakeAPI) History(ctx context.Context, roomID string) ([]models.Message, error) {
	if f.started != nil {
		f.startOnce.Do(func() { close(f.started) })
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.history, f.historyErr
}

func (f *fakeAPI) CreateRoom(ctx context.Context, room models.Conversation) (models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return models.Conversation{}, f.createErr
	}
	f.created = room
	return room, nil
}

func (f *fakeAPI) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}
