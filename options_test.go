//go:build linux || darwin

package reactor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePoller records lifecycle calls; it never reports readiness.
type fakePoller struct {
	inited      bool
	closed      bool
	registered  map[int]IOEvents
	pollCalls   int
	lastTimeout int
}

func newFakePoller() *fakePoller {
	return &fakePoller{registered: make(map[int]IOEvents)}
}

func (p *fakePoller) Init() error {
	p.inited = true
	return nil
}

func (p *fakePoller) Register(fd int, events IOEvents, cb IOCallback) error {
	p.registered[fd] = events
	return nil
}

func (p *fakePoller) Modify(fd int, events IOEvents) error {
	p.registered[fd] = events
	return nil
}

func (p *fakePoller) Unregister(fd int) error {
	delete(p.registered, fd)
	return nil
}

func (p *fakePoller) Poll(timeoutMs int) (int, error) {
	p.pollCalls++
	p.lastTimeout = timeoutMs
	return 0, nil
}

func (p *fakePoller) Close() error {
	p.closed = true
	return nil
}

func TestResolveLoopOptions_Defaults(t *testing.T) {
	cfg, err := resolveLoopOptions(nil)
	require.NoError(t, err)
	assert.Nil(t, cfg.poller)
	assert.Nil(t, cfg.logger)
}

func TestResolveLoopOptions_NilOptionSkipped(t *testing.T) {
	l, err := New(nil, nil)
	require.NoError(t, err)
	defer func() { _ = l.Shutdown() }()
}

func TestResolveLoopOptions_ErrorPropagates(t *testing.T) {
	boom := errors.New("bad option")
	badOpt := &loopOptionImpl{func(*loopOptions) error {
		return boom
	}}

	l, err := New(badOpt)
	assert.Nil(t, l)
	assert.ErrorIs(t, err, boom)
}

func TestWithPoller_NilRejected(t *testing.T) {
	l, err := New(WithPoller(nil))
	assert.Nil(t, l)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWithPoller_CustomBackend(t *testing.T) {
	p := newFakePoller()
	l, err := New(WithPoller(p))
	require.NoError(t, err)

	assert.True(t, p.inited, "Init not called during New")
	assert.Len(t, p.registered, 1, "wake descriptor not registered")

	// Drive one gated cycle so the backend poll is exercised.
	tm := NewTimer(l)
	require.NoError(t, tm.Start(func(*Timer) {}, 0, 0))
	l.RunOnce()
	assert.Positive(t, p.pollCalls, "backend poll not reached")

	require.NoError(t, tm.Stop())
	l.Close(tm, nil)
	require.NoError(t, l.Run())

	require.NoError(t, l.Shutdown())
	assert.True(t, p.closed, "Close not called during Shutdown")
}
