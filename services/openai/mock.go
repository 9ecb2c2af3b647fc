package openaisvc

import (
	"context"
	"sync"

	"github.com/pulseed/pulseed/core"
)

// Mock is an in-memory Completer for tests. Replies are popped in order;
// once exhausted, Reply (or Err) is returned for every call.
type Mock struct {
	mutex    sync.Mutex
	queue    []string
	Reply    string
	Err      error
	Requests []core.CompletionRequest
}

var _ core.Completer = (*Mock)(nil)

func NewMock(replies ...string) *Mock {
	return &Mock{queue: replies}
}

func (m *Mock) Complete(_ context.Context, req core.CompletionRequest) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.queue) > 0 {
		reply := m.queue[0]
		m.queue = m.queue[1:]
		return reply, nil
	}
	return m.Reply, nil
}

func (m *Mock) CallCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.Requests)
}

func (m *Mock) LastRequest() core.CompletionRequest {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if len(m.Requests) == 0 {
		return core.CompletionRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}
