package runtime

import (
	"sync"
)

// MockTransport is an in-process worker stand-in for tests. A script
// function decides how (and whether) each request is answered; a nil
// reply means stay silent, which is how timeout tests starve the
// channel. Sent requests are recorded for call-count instrumentation.
type MockTransport struct {
	mu      sync.Mutex
	sent    []Request
	replies chan Reply
	script  func(req Request) *Reply
	once    sync.Once
}

// NewMockTransport builds a transport driven by script.
func NewMockTransport(script func(req Request) *Reply) *MockTransport {
	return &MockTransport{
		replies: make(chan Reply, 16),
		script:  script,
	}
}

// EchoWorkerScript answers every request the way a healthy worker
// would.
func EchoWorkerScript(req Request) *Reply {
	switch req.Type {
	case RequestInit:
		return &Reply{ID: req.ID, Type: ReplyReady}
	case RequestInstall:
		return &Reply{ID: req.ID, Type: ReplySuccess, Message: "installed " + req.PackageName}
	default:
		return &Reply{ID: req.ID, Type: ReplyResult, Stdout: "ok\n", ExecutionTime: 1.5}
	}
}

func (m *MockTransport) Send(req Request) error {
	m.mu.Lock()
	m.sent = append(m.sent, req)
	script := m.script
	m.mu.Unlock()
	if script != nil {
		if reply := script(req); reply != nil {
			m.replies <- *reply
		}
	}
	return nil
}

func (m *MockTransport) Replies() <-chan Reply { return m.replies }

func (m *MockTransport) Close() error {
	m.once.Do(func() { close(m.replies) })
	return nil
}

// Push injects a reply as if the worker had sent it.
func (m *MockTransport) Push(reply Reply) {
	m.replies <- reply
}

// Sent returns a copy of every request sent so far.
func (m *MockTransport) Sent() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentCount counts the sent requests of one type.
func (m *MockTransport) SentCount(kind RequestType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, req := range m.sent {
		if req.Type == kind {
			n++
		}
	}
	return n
}

// LastSent returns the most recently sent request.
func (m *MockTransport) LastSent() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}
