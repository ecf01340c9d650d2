// Package doapi owns the boundary to the DigitalOcean API: client
// construction, credential resolution, and reducing the SDK's typed
// errors to the uniform shape the rest of the engine reports.
package doapi

import (
	"context"
	"fmt"
	"os"

	"github.com/digitalocean/godo"
	"golang.org/x/oauth2"
)

// Token environment variables, checked in priority order when no
// explicit token is supplied.
var tokenEnvVars = []string{
	"DIGITALOCEAN_ACCESS_TOKEN",
	"DIGITALOCEAN_TOKEN",
	"DO_API_TOKEN",
	"DO_API_KEY",
	"DO_OAUTH_TOKEN",
	"OAUTH_TOKEN",
}

// Options configures client construction. BaseURL and UserAgent are
// developer/test escape hatches; production runs leave them empty.
type Options struct {
	Token     string
	BaseURL   string
	UserAgent string
}

// ResolveToken returns the explicit token if set, otherwise the first
// non-empty value from the environment chain.
func ResolveToken(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	for _, name := range tokenEnvVars {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("no API token: set one of %v", tokenEnvVars)
}

// NewClient builds a godo client from options.
func NewClient(opts Options) (*godo.Client, error) {
	token, err := ResolveToken(opts.Token)
	if err != nil {
		return nil, err
	}

	var clientOpts []godo.ClientOpt
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, godo.SetBaseURL(opts.BaseURL))
	}
	if opts.UserAgent != "" {
		clientOpts = append(clientOpts, godo.SetUserAgent(opts.UserAgent))
	}

	if len(clientOpts) == 0 {
		return godo.NewFromToken(token), nil
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client, err := godo.New(oauth2.NewClient(context.Background(), src), clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build client: %w", err)
	}
	return client, nil
}
