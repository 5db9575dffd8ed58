package history

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dmorgan81/sdxlgen/internal/image"
	"github.com/dmorgan81/sdxlgen/internal/log"
	"github.com/samber/do"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	ImagesKey  = "recentImages"
	PromptsKey = "recentPrompts"

	MaxImages  = 20
	MaxPrompts = 10
)

// Store is the recent-history cache. Both lists are newest first; prompts
// are unique.
type Store struct {
	storage Storage

	mu      sync.RWMutex
	images  []image.GeneratedImage
	prompts []string
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

func NewInjectedStore(i *do.Injector) (*Store, error) {
	return NewStore(do.MustInvoke[Storage](i)), nil
}

// Load rehydrates in-memory state. Absent or corrupt values become empty
// lists; Load never fails.
func (s *Store) Load(ctx context.Context) {
	log := log.FromContextOrDiscard(ctx).WithGroup("history")

	var images []image.GeneratedImage
	var prompts []string

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		images = readList[image.GeneratedImage](gctx, s.storage, ImagesKey)
		return nil
	})
	group.Go(func() error {
		prompts = readList[string](gctx, s.storage, PromptsKey)
		return nil
	})
	_ = group.Wait()

	images = images[:min(len(images), MaxImages)]
	prompts = lo.Uniq(prompts)
	prompts = prompts[:min(len(prompts), MaxPrompts)]

	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = images
	s.prompts = prompts
	log.Info("loaded history", "images", len(images), "prompts", len(prompts))
}

// Record prepends img and prompt, enforces the caps and persists both
// lists. Persistence failures are logged; in-memory state is updated
// regardless.
func (s *Store) Record(ctx context.Context, img image.GeneratedImage, prompt string) {
	log := log.FromContextOrDiscard(ctx).WithGroup("history").With("prompt", prompt)

	s.mu.Lock()
	images := prependImage(s.images, img)
	prompts := prependPrompt(s.prompts, prompt)
	s.images = images
	s.prompts = prompts
	s.mu.Unlock()

	writeList(ctx, s.storage, ImagesKey, images)
	writeList(ctx, s.storage, PromptsKey, prompts)
	log.Info("recorded history", "images", len(images), "prompts", len(prompts))
}

func (s *Store) Images() []image.GeneratedImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]image.GeneratedImage{}, s.images...)
}

func (s *Store) Prompts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.prompts...)
}

func prependImage(images []image.GeneratedImage, img image.GeneratedImage) []image.GeneratedImage {
	out := make([]image.GeneratedImage, 0, MaxImages)
	out = append(out, img)
	return append(out, images[:min(len(images), MaxImages-1)]...)
}

func prependPrompt(prompts []string, prompt string) []string {
	out := lo.Uniq(append([]string{prompt}, prompts...))
	return out[:min(len(out), MaxPrompts)]
}

func readList[T any](ctx context.Context, storage Storage, key string) []T {
	log := log.FromContextOrDiscard(ctx).WithGroup("history").With("key", key)

	data, err := storage.Get(ctx, key)
	if err != nil {
		log.Debug("no stored value", "error", err)
		return []T{}
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		log.Warn("ignoring unparseable stored value", "error", err)
		return []T{}
	}
	return out
}

func writeList[T any](ctx context.Context, storage Storage, key string, list []T) {
	log := log.FromContextOrDiscard(ctx).WithGroup("history").With("key", key)

	data, err := json.Marshal(list)
	if err != nil {
		log.Error("encoding history", "error", err)
		return
	}
	if err := storage.Set(ctx, key, data); err != nil {
		log.Error("persisting history", "error", err)
	}
}
