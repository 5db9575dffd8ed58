package handler

import (
	"context"
	"time"

	"github.com/dmorgan81/sdxlgen/internal/history"
	"github.com/dmorgan81/sdxlgen/internal/image"
	"github.com/dmorgan81/sdxlgen/internal/log"
	"github.com/dmorgan81/sdxlgen/internal/prompt"
	"github.com/dmorgan81/sdxlgen/internal/store"
	"github.com/samber/do"
)

type Input struct {
	Prompt string `json:"prompt,omitempty"`
}

type Output struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"imageUrl"`
	Key      string `json:"key,omitempty"`
}

// Handler serves one generation per lambda invocation. An empty prompt
// replays a random recent one.
type Handler struct {
	randomizer *prompt.Randomizer
	generator  image.Generator
	history    *history.Store
	uploader   store.Uploader
	now        func() time.Time
}

func New(randomizer *prompt.Randomizer, generator image.Generator, recent *history.Store, uploader store.Uploader) *Handler {
	return &Handler{randomizer, generator, recent, uploader, time.Now}
}

func NewHandler(i *do.Injector) (*Handler, error) {
	uploader, _ := do.InvokeNamed[store.Uploader](i, "output")
	return New(
		do.MustInvoke[*prompt.Randomizer](i),
		do.MustInvoke[image.Generator](i),
		do.MustInvoke[*history.Store](i),
		uploader,
	), nil
}

func (h *Handler) Handle(ctx context.Context, input Input) (Output, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("Handler").With("input", input)
	log.Info("handling lambda invocation")

	h.history.Load(ctx)

	if input.Prompt == "" {
		p, err := h.randomizer.Randomize(ctx)
		if err != nil {
			return Output{}, err
		}
		input.Prompt = p
	}

	img, err := h.generator.Generate(ctx, image.DefaultParams(input.Prompt))
	if err != nil {
		return Output{}, err
	}
	h.history.Record(ctx, img, input.Prompt)

	out := Output{Prompt: img.Prompt, ImageURL: img.ImageURL}
	if h.uploader == nil {
		return out, nil
	}

	data, err := img.PNG()
	if err != nil {
		return Output{}, err
	}
	out.Key = h.now().UTC().Format("20060102150405") + ".png"
	if err := h.uploader.Upload(ctx, store.UploadParams{
		Name:        out.Key,
		Data:        data,
		ContentType: "image/png",
		Metadata:    map[string]string{"prompt": input.Prompt},
	}); err != nil {
		return Output{}, err
	}
	return out, nil
}
