package inject

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/dmorgan81/sdxlgen/internal/feed"
	"github.com/dmorgan81/sdxlgen/internal/handler"
	"github.com/dmorgan81/sdxlgen/internal/history"
	"github.com/dmorgan81/sdxlgen/internal/image"
	"github.com/dmorgan81/sdxlgen/internal/log"
	"github.com/dmorgan81/sdxlgen/internal/page"
	"github.com/dmorgan81/sdxlgen/internal/param"
	"github.com/dmorgan81/sdxlgen/internal/prompt"
	"github.com/dmorgan81/sdxlgen/internal/server"
	"github.com/dmorgan81/sdxlgen/internal/session"
	"github.com/dmorgan81/sdxlgen/internal/store"
	"github.com/samber/do"
)

var ErrMissingKey = errors.New("no api key: set STABILITY_API_KEY or STABILITY_API_KEY_PARAM")

func Setup(ctx context.Context, cfg Config) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})

	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return config.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.ProvideValue[*http.Client](injector, http.DefaultClient)

	do.Provide[param.Fetcher](injector, func(i *do.Injector) (param.Fetcher, error) {
		if cfg.APIKeyParam != "" {
			return &param.ParameterStoreFetcher{Client: do.MustInvoke[*ssm.Client](i)}, nil
		}
		return param.EnvFetcher{}, nil
	})
	do.ProvideNamed[string](injector, "stability_key", func(i *do.Injector) (string, error) {
		if cfg.APIKey != "" {
			return cfg.APIKey, nil
		}
		if cfg.APIKeyParam == "" {
			return "", ErrMissingKey
		}
		return do.MustInvoke[param.Fetcher](i).Fetch(ctx, cfg.APIKeyParam)
	})
	do.ProvideNamedValue[string](injector, "stability_host", cfg.APIHost)
	do.ProvideNamedValue[string](injector, "base_url", cfg.BaseURL)

	do.Provide[history.Storage](injector, func(i *do.Injector) (history.Storage, error) {
		switch {
		case cfg.Ephemeral:
			return history.NewMemoryStorage(), nil
		case cfg.HistoryBucket != "":
			return &history.S3Storage{
				Client: do.MustInvoke[*s3.Client](i),
				Bucket: cfg.HistoryBucket,
				Prefix: cfg.HistoryPrefix,
			}, nil
		default:
			return &history.FileStorage{Path: cfg.HistoryFile}, nil
		}
	})
	if cfg.OutputBucket != "" {
		do.ProvideNamed[store.Uploader](injector, "output", func(i *do.Injector) (store.Uploader, error) {
			return &store.S3Uploader{Client: do.MustInvoke[*s3.Client](i), Bucket: cfg.OutputBucket}, nil
		})
	}

	do.Provide[*history.Store](injector, history.NewInjectedStore)
	do.Provide[image.Generator](injector, image.NewStabilityGenerator)
	do.Provide[*session.Session](injector, session.NewInjectedSession)
	do.Provide[*prompt.Randomizer](injector, prompt.NewInjectedRandomizer)
	do.Provide[*page.Templator](injector, page.NewTemplator)
	do.Provide[*feed.Generator](injector, feed.NewGenerator)
	do.Provide[*server.Server](injector, server.NewServer)
	do.Provide[*handler.Handler](injector, handler.NewHandler)

	return injector
}
