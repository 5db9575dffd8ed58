package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const dataURIPrefix = "data:image/png;base64,"

type TextPrompt struct {
	Text string `json:"text"`
}

type Params struct {
	TextPrompts []TextPrompt `json:"text_prompts"`
	CfgScale    int          `json:"cfg_scale"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Steps       int          `json:"steps"`
	Samples     int          `json:"samples"`
}

func DefaultParams(prompt string) Params {
	return Params{
		TextPrompts: []TextPrompt{{Text: prompt}},
		CfgScale:    7,
		Height:      1024,
		Width:       1024,
		Steps:       30,
		Samples:     1,
	}
}

func (p Params) Prompt() string {
	if len(p.TextPrompts) == 0 {
		return ""
	}
	return p.TextPrompts[0].Text
}

// GeneratedImage is immutable once created.
type GeneratedImage struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"imageUrl"`
}

func NewGeneratedImage(prompt, b64 string) GeneratedImage {
	return GeneratedImage{Prompt: prompt, ImageURL: dataURIPrefix + b64}
}

// PNG decodes the data URI back into raw image bytes.
func (g GeneratedImage) PNG() ([]byte, error) {
	payload, ok := strings.CutPrefix(g.ImageURL, dataURIPrefix)
	if !ok {
		return nil, errors.New("image url is not a png data uri")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding image payload: %w", err)
	}
	return data, nil
}

var ErrEmptyPrompt = errors.New("prompt is empty")

// APIError is a non-success response from the generation API. Message is
// empty when the response carried no message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("generation failed with status %d", e.Status)
	}
	return fmt.Sprintf("generation failed with status %d: %s", e.Status, e.Message)
}

// Message extracts the user-facing message from err. Only API errors carry
// one; anything else yields the empty string.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

type Generator interface {
	Generate(context.Context, Params) (GeneratedImage, error)
}
