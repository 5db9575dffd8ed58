package feed

import (
	"context"
	"net/url"
	"time"

	"github.com/dmorgan81/sdxlgen/internal/image"
	"github.com/dmorgan81/sdxlgen/internal/log"
	"github.com/gorilla/feeds"
	"github.com/samber/do"
	"github.com/samber/lo"
)

type Generator struct {
	BaseURL string
	Now     func() time.Time
}

func NewGenerator(i *do.Injector) (*Generator, error) {
	return &Generator{BaseURL: do.MustInvokeNamed[string](i, "base_url"), Now: time.Now}, nil
}

// Generate renders recent images as RSS, keeping their newest-first order.
func (g *Generator) Generate(ctx context.Context, images []image.GeneratedImage) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("feed")
	log.Info("generating rss feed", "items", len(images))

	now := g.Now()
	feed := feeds.Feed{
		Title:       "sdxlgen",
		Description: "Recently generated images",
		Link:        &feeds.Link{Href: g.BaseURL + "/"},
		Updated:     now,
		Items: lo.Map(images, func(img image.GeneratedImage, _ int) *feeds.Item {
			return &feeds.Item{
				Title:       img.Prompt,
				Description: img.Prompt,
				Link:        &feeds.Link{Href: g.BaseURL + "/?prompt=" + url.QueryEscape(img.Prompt)},
			}
		}),
	}

	rss, err := feed.ToRss()
	return []byte(rss), err
}
