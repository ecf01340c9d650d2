package await

import (
	"context"
	"fmt"

	"github.com/digitalocean/godo"
)

// ActionGetter is the slice of godo's actions service the poller needs.
type ActionGetter interface {
	Get(ctx context.Context, id int) (*godo.Action, *godo.Response, error)
}

// Action waits for a submitted godo action to reach a terminal status.
// The returned action is the last fetched state (or the submitted one
// when no fetch was needed).
func Action(ctx context.Context, actions ActionGetter, submitted *godo.Action, cfg Config) (*godo.Action, Result, error) {
	if submitted == nil {
		return nil, Result{}, fmt.Errorf("no action to await")
	}

	last := submitted
	fetch := func(ctx context.Context) (string, error) {
		a, _, err := actions.Get(ctx, submitted.ID)
		if err != nil {
			return "", err
		}
		last = a
		return a.Status, nil
	}

	res, err := Until(ctx, fetch, submitted.Status, cfg)
	return last, res, err
}
