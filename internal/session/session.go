package session

import (
	"context"
	"errors"
	"sync"

	"github.com/dmorgan81/sdxlgen/internal/history"
	"github.com/dmorgan81/sdxlgen/internal/image"
	"github.com/dmorgan81/sdxlgen/internal/log"
	"github.com/samber/do"
)

// ErrBusy is returned while another generation is in flight.
var ErrBusy = errors.New("a generation is already in progress")

type State struct {
	Prompt         string
	GeneratedImage *image.GeneratedImage
	Error          string
	Loading        bool
	RecentImages   []image.GeneratedImage
	RecentPrompts  []string
}

// Session is the state behind the single page: the current prompt and
// result plus the recent history. At most one request is in flight.
type Session struct {
	generator image.Generator
	history   *history.Store

	inflight sync.Mutex

	mu        sync.RWMutex
	prompt    string
	generated *image.GeneratedImage
	errMsg    string
	loading   bool
}

func New(generator image.Generator, store *history.Store) *Session {
	return &Session{generator: generator, history: store}
}

func NewInjectedSession(i *do.Injector) (*Session, error) {
	return New(do.MustInvoke[image.Generator](i), do.MustInvoke[*history.Store](i)), nil
}

// Submit runs one generation for prompt. The returned error is for the
// caller's logs; the user-facing message is in State.Error.
func (s *Session) Submit(ctx context.Context, prompt string) (image.GeneratedImage, error) {
	if !s.inflight.TryLock() {
		return image.GeneratedImage{}, ErrBusy
	}
	defer s.inflight.Unlock()

	log := log.FromContextOrDiscard(ctx).WithGroup("session").With("prompt", prompt)
	log.Info("submitting prompt")

	s.mu.Lock()
	s.prompt = prompt
	s.errMsg = ""
	s.loading = true
	s.mu.Unlock()

	img, err := s.generator.Generate(ctx, image.DefaultParams(prompt))

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.errMsg = image.Message(err)
		s.mu.Unlock()
		log.Error("generation failed", "error", err)
		return image.GeneratedImage{}, err
	}
	s.generated = &img
	s.mu.Unlock()

	s.history.Record(ctx, img, prompt)
	return img, nil
}

// SetPrompt fills the prompt field, as when a recent prompt is picked.
func (s *Session) SetPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = prompt
}

func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{
		Prompt:        s.prompt,
		Error:         s.errMsg,
		Loading:       s.loading,
		RecentImages:  s.history.Images(),
		RecentPrompts: s.history.Prompts(),
	}
	if s.generated != nil {
		img := *s.generated
		state.GeneratedImage = &img
	}
	return state
}
