// Package paginate walks DigitalOcean list endpoints page by page,
// following the next-page link each response embeds.
package paginate

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/digitalocean/godo"
)

// DefaultPageSize is used when Options.PageSize is not set.
const DefaultPageSize = 50

// ListFunc fetches one page. Resource-specific filter parameters are
// baked into the closure; the paginator only varies the page cursor.
type ListFunc[T any] func(ctx context.Context, opt *godo.ListOptions) ([]T, *godo.Response, error)

// Options bound one pagination run.
type Options struct {
	// PageSize is the per_page sent with every request.
	PageSize int
	// Max, when positive, stops fetching once that many items are
	// accumulated and trims the final page's overshoot.
	Max int
	// OnPage, when set, is invoked once per successfully fetched page.
	OnPage func(ctx context.Context)
}

// All fetches every page and returns the concatenation in page order.
// No de-duplication is performed; an unstable backend listing passes
// through as-is. Any error aborts the run entirely and discards pages
// already fetched, so a caller never sees a partial result.
func All[T any](ctx context.Context, list ListFunc[T], opts Options) ([]T, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var out []T
	page := 1
	for {
		items, resp, err := list(ctx, &godo.ListOptions{Page: page, PerPage: pageSize})
		if err != nil {
			return nil, err
		}
		if opts.OnPage != nil {
			opts.OnPage(ctx)
		}

		// An absent or empty result set is a valid empty page.
		out = append(out, items...)

		if opts.Max > 0 && len(out) >= opts.Max {
			return out[:opts.Max], nil
		}

		next, ok, err := nextPage(resp)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		page = next
	}
}

// nextPage extracts the next page number from the response links.
// A response with no links section at all is a single-page resource.
func nextPage(resp *godo.Response) (int, bool, error) {
	if resp == nil || resp.Links == nil || resp.Links.Pages == nil {
		return 0, false, nil
	}
	if resp.Links.Pages.Next == "" {
		return 0, false, nil
	}

	u, err := url.Parse(resp.Links.Pages.Next)
	if err != nil {
		return 0, false, fmt.Errorf("malformed next-page link %q: %w", resp.Links.Pages.Next, err)
	}
	raw := u.Query().Get("page")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("next-page link %q has no usable page parameter: %w", resp.Links.Pages.Next, err)
	}
	return n, true, nil
}
