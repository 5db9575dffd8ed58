package page

import (
	"context"
	"testing"

	"github.com/dmorgan81/sdxlgen/internal/image"
	"github.com/dmorgan81/sdxlgen/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRendersState(t *testing.T) {
	img := image.NewGeneratedImage("a <b>cat</b>", "cG5n")
	html, err := (&Templator{}).Template(context.Background(), session.State{
		Prompt:         "a <b>cat</b>",
		GeneratedImage: &img,
		Error:          "quota exceeded",
		RecentImages:   []image.GeneratedImage{img},
		RecentPrompts:  []string{"a <b>cat</b>", "dog & bone"},
	})
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, `src="data:image/png;base64,cG5n"`)
	assert.Contains(t, out, "quota exceeded")
	assert.Contains(t, out, `href="/download"`)
	assert.Contains(t, out, "a &lt;b&gt;cat&lt;/b&gt;")
	assert.Contains(t, out, "/?prompt=dog%20%26%20bone")
	assert.NotContains(t, out, "<b>cat</b>")
	assert.Contains(t, out, "Generate Image")
}

func TestTemplateLoadingDisablesSubmit(t *testing.T) {
	html, err := (&Templator{}).Template(context.Background(), session.State{Loading: true})
	require.NoError(t, err)
	assert.Contains(t, string(html), "disabled>Generating...")
	assert.NotContains(t, string(html), `class="generated"`)
}

func TestImageSrcFiltersForeignURLs(t *testing.T) {
	html, err := (&Templator{}).Template(context.Background(), session.State{
		RecentImages: []image.GeneratedImage{{Prompt: "x", ImageURL: "javascript:alert(1)"}},
	})
	require.NoError(t, err)
	assert.NotContains(t, string(html), "javascript:")
}
