package param

import (
	"context"
	"errors"
	"os"
)

type Fetcher interface {
	Fetch(context.Context, string) (string, error)
}

var ErrUnset = errors.New("parameter is unset")

// EnvFetcher reads parameters from the process environment.
type EnvFetcher struct{}

func (EnvFetcher) Fetch(_ context.Context, name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", ErrUnset
	}
	return v, nil
}
