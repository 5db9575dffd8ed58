package page

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"strings"
	"sync"

	"github.com/dmorgan81/sdxlgen/internal/log"
	"github.com/dmorgan81/sdxlgen/internal/session"
	"github.com/samber/do"
)

//go:embed assets/index.html
var indexTmpl string

type Templator struct {
	tmpl *template.Template
	once sync.Once
}

func NewTemplator(_ *do.Injector) (*Templator, error) {
	return &Templator{}, nil
}

// imageSrc lets generated data URIs through html/template's URL filter.
// Anything else is left to the default escaping.
func imageSrc(s string) any {
	if strings.HasPrefix(s, "data:image/png;base64,") {
		return template.URL(s)
	}
	return s
}

func (g *Templator) Template(ctx context.Context, state session.State) ([]byte, error) {
	g.once.Do(func() {
		g.tmpl = template.Must(template.New("index").
			Funcs(template.FuncMap{"imageSrc": imageSrc}).
			Parse(indexTmpl))
	})

	log := log.FromContextOrDiscard(ctx).WithGroup("templator")
	log.Debug("rendering page", "loading", state.Loading, "images", len(state.RecentImages))

	var data bytes.Buffer
	if err := g.tmpl.Execute(&data, state); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}
