package app

import (
	"errors"
	"sync"

	"github.com/dkeye/Proctor/internal/core"
	"github.com/dkeye/Proctor/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func newMember(id string) core.MemberSession {
	return core.NewMemberSession(domain.NewMember(domain.ConnID(id), "token-"+id), &fakeConn{})
}
