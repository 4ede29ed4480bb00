package pagination

import (
	"errors"
	"net/url"
	"testing"

	"github.com/tourdesk/backoffice/internal/domain"
)

func TestParseDefaults(t *testing.T) {
	params, err := Parse(url.Values{}, Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != DefaultPageSize {
		t.Fatalf("expected default page size %d got %d", DefaultPageSize, params.PageSize)
	}
	if params.PageToken != "" {
		t.Fatalf("expected empty page token got %q", params.PageToken)
	}
}

func TestParsePageSize(t *testing.T) {
	opts := Options{DefaultPageSize: 25, MaxPageSize: 40}
	values := url.Values{}
	values.Set("pageSize", "30")

	params, err := Parse(values, opts)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != 30 {
		t.Fatalf("expected page size 30 got %d", params.PageSize)
	}

	values.Set("pageSize", "400")
	params, err = Parse(values, opts)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != opts.MaxPageSize {
		t.Fatalf("expected page size clamped to %d got %d", opts.MaxPageSize, params.PageSize)
	}
}

func TestParseInvalidPageSize(t *testing.T) {
	values := url.Values{}
	values.Set("pageSize", "abc")

	if _, err := Parse(values, Options{}); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize got %v", err)
	}

	values.Set("pageSize", "0")
	if _, err := Parse(values, Options{}); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize for zero got %v", err)
	}
}

func TestParseInvalidPageToken(t *testing.T) {
	values := url.Values{}
	values.Set("pageToken", "%%%")
	if _, err := Parse(values, Options{}); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken got %v", err)
	}
}

func TestApplyWalksPages(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	first, err := Apply(items, domain.Pagination{PageSize: 2})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if len(first.Items) != 2 || first.Items[0] != "a" || first.NextPageToken == "" {
		t.Fatalf("unexpected first page %#v", first)
	}

	second, err := Apply(items, domain.Pagination{PageSize: 2, PageToken: first.NextPageToken})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if len(second.Items) != 2 || second.Items[0] != "c" {
		t.Fatalf("unexpected second page %#v", second)
	}

	third, err := Apply(items, domain.Pagination{PageSize: 2, PageToken: second.NextPageToken})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if len(third.Items) != 1 || third.Items[0] != "e" || third.NextPageToken != "" {
		t.Fatalf("unexpected last page %#v", third)
	}
}

func TestApplyBeyondEndReturnsEmptyPage(t *testing.T) {
	page, err := Apply([]int{1, 2}, domain.Pagination{PageSize: 5, PageToken: EncodeToken(Cursor{Offset: 10})})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if len(page.Items) != 0 || page.NextPageToken != "" {
		t.Fatalf("expected empty page, got %#v", page)
	}
}
