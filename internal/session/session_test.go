package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/engine"
	"github.com/pagelens/pagelens/internal/shared/id"
)

// fakeEngine satisfies engine.Engine without a browser process.
type fakeEngine struct {
	mu        sync.Mutex
	contexts  int
	shutdowns int
	failNext  bool
}

func (f *fakeEngine) Start(ctx context.Context) error { return nil }

func (f *fakeEngine) NewContext(ctx context.Context) (engine.BrowsingContext, engine.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return nil, nil, errors.New("launch failed")
	}
	f.contexts++
	return &fakeContext{}, &fakePage{}, nil
}

func (f *fakeEngine) Running() bool { return true }

func (f *fakeEngine) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	return nil
}

type fakeContext struct {
	// blockClose, when set, stalls Close until the channel is closed.
	blockClose chan struct{}

	mu     sync.Mutex
	closed int
}

func (f *fakeContext) Close() error {
	if f.blockClose != nil {
		<-f.blockClose
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

type fakePage struct{}

func (f *fakePage) Navigate(ctx context.Context, url string) error { return nil }
func (f *fakePage) Info() (engine.PageInfo, error)                 { return engine.PageInfo{}, nil }
func (f *fakePage) Back(ctx context.Context) error                 { return nil }
func (f *fakePage) Forward(ctx context.Context) error              { return nil }
func (f *fakePage) Reload(ctx context.Context) error               { return nil }
func (f *fakePage) Screenshot(ctx context.Context, quality int) ([]byte, error) {
	return []byte{0xff, 0xd8}, nil
}
func (f *fakePage) Click(ctx context.Context, x, y float64, button engine.MouseButton) error {
	return nil
}
func (f *fakePage) Type(ctx context.Context, text string) error        { return nil }
func (f *fakePage) Press(ctx context.Context, chord engine.Chord) error { return nil }
func (f *fakePage) Scroll(ctx context.Context, dx, dy float64) error   { return nil }

func TestManagerCreateGet(t *testing.T) {
	m := NewManager(&fakeEngine{}, nil)

	s, err := m.Create(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.ID.Valid(), "session id should carry the sess prefix: %s", s.ID)
	assert.False(t, s.CreatedAt.IsZero())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Count())
}

func TestManagerGetUnknown(t *testing.T) {
	m := NewManager(&fakeEngine{}, nil)

	_, err := m.Get(id.SessionID("sess_00000000000000000000000000"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerCreateEngineFailure(t *testing.T) {
	eng := &fakeEngine{failNext: true}
	m := NewManager(eng, nil)

	_, err := m.Create(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, m.Count(), "failed create should not register a session")
}

func TestManagerClose(t *testing.T) {
	m := NewManager(&fakeEngine{}, nil)
	s, err := m.Create(context.Background())
	require.NoError(t, err)

	fc := s.context.(*fakeContext)
	require.NoError(t, m.Close(s.ID))
	assert.Equal(t, 1, fc.closed, "closing a session should close its context")
	assert.Equal(t, 0, m.Count())

	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound, "closed session should be gone")
	assert.ErrorIs(t, m.Close(s.ID), ErrNotFound, "double close should report not found")
}

func TestManagerCloseDoesNotBlockReaders(t *testing.T) {
	m := NewManager(&fakeEngine{}, nil)
	slow, err := m.Create(context.Background())
	require.NoError(t, err)
	other, err := m.Create(context.Background())
	require.NoError(t, err)

	release := make(chan struct{})
	slow.context.(*fakeContext).blockClose = release

	closed := make(chan error, 1)
	go func() { closed <- m.Close(slow.ID) }()

	// The record disappears before the engine close completes.
	require.Eventually(t, func() bool {
		_, err := m.Get(slow.ID)
		return errors.Is(err, ErrNotFound)
	}, time.Second, time.Millisecond)

	// Reads on other sessions must not stall behind the close.
	got, err := m.Get(other.ID)
	require.NoError(t, err)
	assert.Same(t, other, got)
	assert.Equal(t, 1, m.Count())

	close(release)
	require.NoError(t, <-closed)
	assert.Equal(t, 1, slow.context.(*fakeContext).closed)
}

func TestManagerCloseAll(t *testing.T) {
	eng := &fakeEngine{}
	m := NewManager(eng, nil)

	s1, err := m.Create(context.Background())
	require.NoError(t, err)
	s2, err := m.Create(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.CloseAll())
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 1, s1.context.(*fakeContext).closed)
	assert.Equal(t, 1, s2.context.(*fakeContext).closed)
	assert.Equal(t, 1, eng.shutdowns)

	// Idempotent.
	require.NoError(t, m.CloseAll())
	assert.Equal(t, 2, eng.shutdowns)
}

func TestManagerConcurrentCreate(t *testing.T) {
	m := NewManager(&fakeEngine{}, nil)

	const n = 32
	var wg sync.WaitGroup
	ids := make(chan id.SessionID, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.Create(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			ids <- s.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[id.SessionID]bool)
	for sid := range ids {
		assert.False(t, seen[sid], "duplicate session id %s", sid)
		seen[sid] = true
	}
	assert.Equal(t, n, m.Count())
}

func TestSessionWithHistory(t *testing.T) {
	m := NewManager(&fakeEngine{}, nil)
	s, err := m.Create(context.Background())
	require.NoError(t, err)

	s.WithHistory(func(h *History) {
		h.Record("https://a.example")
		h.Record("https://b.example")
	})

	var canBack bool
	s.WithHistory(func(h *History) { canBack = h.CanBack() })
	assert.True(t, canBack)
}
