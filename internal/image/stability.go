package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmorgan81/sdxlgen/internal/log"
	"github.com/samber/do"
)

const (
	DefaultHost    = "https://api.stability.ai"
	textToImageURI = "/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image"
)

type artifact struct {
	Base64       string `json:"base64"`
	Seed         int64  `json:"seed"`
	FinishReason string `json:"finishReason"`
}

type response struct {
	Artifacts []artifact `json:"artifacts"`
}

type StabilityGenerator struct {
	Client *http.Client
	Host   string
	Key    string
}

func NewStabilityGenerator(i *do.Injector) (Generator, error) {
	return &StabilityGenerator{
		Client: do.MustInvoke[*http.Client](i),
		Host:   do.MustInvokeNamed[string](i, "stability_host"),
		Key:    do.MustInvokeNamed[string](i, "stability_key"),
	}, nil
}

func (g *StabilityGenerator) Generate(ctx context.Context, params Params) (GeneratedImage, error) {
	prompt := params.Prompt()
	log := log.FromContextOrDiscard(ctx).WithGroup("stability").With("prompt", prompt)
	if strings.TrimSpace(prompt) == "" {
		return GeneratedImage{}, ErrEmptyPrompt
	}
	log.Info("generating image via api.stability.ai")

	body, err := json.Marshal(params)
	if err != nil {
		return GeneratedImage{}, err
	}

	url := strings.TrimSuffix(g.Host, "/") + textToImageURI
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return GeneratedImage{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.Key)

	resp, err := g.Client.Do(req)
	if err != nil {
		return GeneratedImage{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return GeneratedImage{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &msg) == nil {
			apiErr.Message = msg.Message
		}
		log.Warn("generation request failed", "status", resp.StatusCode, "message", apiErr.Message)
		return GeneratedImage{}, apiErr
	}

	var out response
	if err := json.Unmarshal(data, &out); err != nil {
		return GeneratedImage{}, fmt.Errorf("decoding generation response: %w", err)
	}
	if len(out.Artifacts) == 0 {
		return GeneratedImage{}, errors.New("generation response has no artifacts")
	}

	first := out.Artifacts[0]
	log.Info("received image via api.stability.ai", "seed", first.Seed, "finish_reason", first.FinishReason)
	return NewGeneratedImage(prompt, first.Base64), nil
}
