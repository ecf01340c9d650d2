package paginate

import (
	"context"
	"fmt"
	"testing"

	"github.com/digitalocean/godo"
)

// fakeBackend serves scripted pages of string items.
type fakeBackend struct {
	pages    [][]string
	calls    int
	failPage int // 1-based page that errors, 0 = never
	nextLink func(page int) string
}

func (b *fakeBackend) list(_ context.Context, opt *godo.ListOptions) ([]string, *godo.Response, error) {
	b.calls++
	if b.failPage > 0 && opt.Page == b.failPage {
		return nil, nil, fmt.Errorf("boom on page %d", opt.Page)
	}
	if opt.Page < 1 || opt.Page > len(b.pages) {
		return nil, &godo.Response{}, nil
	}

	resp := &godo.Response{}
	if opt.Page < len(b.pages) {
		link := fmt.Sprintf("https://api.digitalocean.com/v2/things?page=%d&per_page=%d", opt.Page+1, opt.PerPage)
		if b.nextLink != nil {
			link = b.nextLink(opt.Page)
		}
		resp.Links = &godo.Links{Pages: &godo.Pages{Next: link}}
	}
	return b.pages[opt.Page-1], resp, nil
}

func pages(spec ...int) [][]string {
	var out [][]string
	n := 0
	for _, size := range spec {
		var page []string
		for i := 0; i < size; i++ {
			page = append(page, fmt.Sprintf("item-%d", n))
			n++
		}
		out = append(out, page)
	}
	return out
}

func TestAllConcatenatesInOrder(t *testing.T) {
	backend := &fakeBackend{pages: pages(3, 3, 2)}

	got, err := All(context.Background(), backend.list, Options{PageSize: 3})
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("got %d items, want 8", len(got))
	}
	for i, item := range got {
		if want := fmt.Sprintf("item-%d", i); item != want {
			t.Errorf("item %d = %q, want %q", i, item, want)
		}
	}
	if backend.calls != 3 {
		t.Errorf("made %d requests, want 3", backend.calls)
	}
}

func TestAllSinglePageNoLinks(t *testing.T) {
	backend := &fakeBackend{pages: pages(2)}

	got, err := All(context.Background(), backend.list, Options{})
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(got) != 2 || backend.calls != 1 {
		t.Errorf("got %d items in %d calls, want 2 items in 1 call", len(got), backend.calls)
	}
}

func TestAllEmptyPageIsValid(t *testing.T) {
	backend := &fakeBackend{pages: [][]string{nil}}

	got, err := All(context.Background(), backend.list, Options{})
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d items, want 0", len(got))
	}
}

func TestAllEarlyStop(t *testing.T) {
	backend := &fakeBackend{pages: pages(3, 3, 3)}

	got, err := All(context.Background(), backend.list, Options{PageSize: 3, Max: 4})
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d items, want 4", len(got))
	}
	for i, item := range got {
		if want := fmt.Sprintf("item-%d", i); item != want {
			t.Errorf("item %d = %q, want %q", i, item, want)
		}
	}
	// Two pages satisfy the bound; page 3 must never be requested.
	if backend.calls != 2 {
		t.Errorf("made %d requests, want 2", backend.calls)
	}
}

func TestAllAbortDiscardsPartial(t *testing.T) {
	backend := &fakeBackend{pages: pages(3, 3, 3), failPage: 2}

	got, err := All(context.Background(), backend.list, Options{PageSize: 3})
	if err == nil {
		t.Fatal("expected error from page 2")
	}
	if got != nil {
		t.Errorf("partial result leaked: %v", got)
	}
}

func TestAllMalformedNextLink(t *testing.T) {
	backend := &fakeBackend{
		pages:    pages(2, 2),
		nextLink: func(int) string { return "https://api.digitalocean.com/v2/things?cursor=abc" },
	}

	if _, err := All(context.Background(), backend.list, Options{}); err == nil {
		t.Fatal("next link without a page parameter must error")
	}
}

func TestAllInvokesOnPagePerFetch(t *testing.T) {
	backend := &fakeBackend{pages: pages(3, 3, 2)}

	fired := 0
	_, err := All(context.Background(), backend.list, Options{PageSize: 3, OnPage: func(context.Context) { fired++ }})
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if fired != backend.calls {
		t.Errorf("OnPage fired %d times for %d requests", fired, backend.calls)
	}
	if fired != 3 {
		t.Errorf("OnPage fired %d times, want 3", fired)
	}
}

func TestAllOnPageSkippedOnError(t *testing.T) {
	backend := &fakeBackend{pages: pages(3, 3), failPage: 2}

	fired := 0
	_, err := All(context.Background(), backend.list, Options{PageSize: 3, OnPage: func(context.Context) { fired++ }})
	if err == nil {
		t.Fatal("expected error from failing page")
	}
	if fired != 1 {
		t.Errorf("OnPage fired %d times, want 1", fired)
	}
}
