package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmorgan81/sdxlgen/internal/history"
	"github.com/dmorgan81/sdxlgen/internal/image"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, params image.Params) (image.GeneratedImage, error) {
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	if f.err != nil {
		return image.GeneratedImage{}, f.err
	}
	return image.NewGeneratedImage(params.Prompt(), "cG5n"), nil
}

func newSession(g image.Generator) *Session {
	store := history.NewStore(history.NewMemoryStorage())
	store.Load(context.Background())
	return New(g, store)
}

func TestSubmitSuccess(t *testing.T) {
	s := newSession(&fakeGenerator{})

	img, err := s.Submit(context.Background(), "cat")
	require.NoError(t, err)

	state := s.Snapshot()
	require.NotNil(t, state.GeneratedImage)
	assert.Equal(t, img, *state.GeneratedImage)
	assert.Empty(t, state.Error)
	assert.False(t, state.Loading)
	assert.Equal(t, []string{"cat"}, state.RecentPrompts)
	assert.Equal(t, []image.GeneratedImage{img}, state.RecentImages)
}

func TestSubmitAPIFailure(t *testing.T) {
	s := newSession(&fakeGenerator{err: &image.APIError{Status: 401, Message: "bad key"}})

	_, err := s.Submit(context.Background(), "cat")
	require.Error(t, err)

	state := s.Snapshot()
	assert.Nil(t, state.GeneratedImage)
	assert.Equal(t, "bad key", state.Error)
	assert.False(t, state.Loading)
	assert.Empty(t, state.RecentPrompts)
}

func TestSubmitNetworkFailureHasNoMessage(t *testing.T) {
	s := newSession(&fakeGenerator{err: errors.New("dial tcp: refused")})

	_, err := s.Submit(context.Background(), "cat")
	require.Error(t, err)
	assert.Empty(t, s.Snapshot().Error)
	assert.Nil(t, s.Snapshot().GeneratedImage)
}

func TestSubmitClearsPreviousError(t *testing.T) {
	g := &fakeGenerator{err: &image.APIError{Status: 400, Message: "nope"}}
	s := newSession(g)

	_, _ = s.Submit(context.Background(), "a")
	assert.Equal(t, "nope", s.Snapshot().Error)

	g.err = nil
	_, err := s.Submit(context.Background(), "b")
	require.NoError(t, err)
	assert.Empty(t, s.Snapshot().Error)
}

func TestSubmitRejectsOverlap(t *testing.T) {
	g := &fakeGenerator{started: make(chan struct{}), release: make(chan struct{})}
	s := newSession(g)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.Submit(context.Background(), "slow")
		assert.NoError(t, err)
	}()

	<-g.started
	assert.True(t, s.Snapshot().Loading)
	_, err := s.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	close(g.release)
	wg.Wait()
	assert.Equal(t, []string{"slow"}, s.Snapshot().RecentPrompts)
}

func TestSetPrompt(t *testing.T) {
	s := newSession(&fakeGenerator{})
	s.SetPrompt("again")
	assert.Equal(t, "again", s.Snapshot().Prompt)
}
