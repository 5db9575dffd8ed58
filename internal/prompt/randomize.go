package prompt

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/dmorgan81/sdxlgen/internal/history"
	"github.com/dmorgan81/sdxlgen/internal/log"
	"github.com/samber/do"
)

var ErrNoPrompts = errors.New("no recent prompts to pick from")

// Randomizer replays a random prompt from recent history.
type Randomizer struct {
	history *history.Store
	rnd     *rand.Rand
}

func NewRandomizer(store *history.Store, seed int64) *Randomizer {
	return &Randomizer{store, rand.New(rand.NewSource(seed))}
}

func NewInjectedRandomizer(i *do.Injector) (*Randomizer, error) {
	return NewRandomizer(do.MustInvoke[*history.Store](i), time.Now().UTC().Unix()), nil
}

func (r *Randomizer) Randomize(ctx context.Context) (string, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("randomizer")
	prompts := r.history.Prompts()
	if len(prompts) == 0 {
		return "", ErrNoPrompts
	}
	p := prompts[r.rnd.Intn(len(prompts))]
	log.Info("picked random recent prompt", "prompt", p)
	return p, nil
}
