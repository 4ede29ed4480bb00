package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tourdesk/backoffice/internal/domain"
)

const (
	// DefaultPageSize defines the fallback number of items returned when the client omits pageSize.
	DefaultPageSize = 50
	// DefaultMaxPageSize caps the supported pageSize to prevent unbounded queries.
	DefaultMaxPageSize = 100
)

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid pageSize")
	ErrInvalidPageToken = errors.New("pagination: invalid pageToken")
)

// Options control how Parse behaves for a given handler.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Parse reads pageSize and pageToken from the query string.
func Parse(values url.Values, opts Options) (domain.Pagination, error) {
	if values == nil {
		values = url.Values{}
	}
	pageSize, err := parsePageSize(values.Get("pageSize"), opts)
	if err != nil {
		return domain.Pagination{}, err
	}
	token := strings.TrimSpace(values.Get("pageToken"))
	if _, err := DecodeToken(token); err != nil {
		return domain.Pagination{}, err
	}
	return domain.Pagination{PageSize: pageSize, PageToken: token}, nil
}

// Apply slices an already filtered and ordered result set according to the pagination request
// and computes the token for the following page.
func Apply[T any](items []T, p domain.Pagination) (domain.Page[T], error) {
	cursor, err := DecodeToken(p.PageToken)
	if err != nil {
		return domain.Page[T]{}, err
	}
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if cursor.Offset >= len(items) {
		return domain.Page[T]{Items: []T{}}, nil
	}
	end := cursor.Offset + size
	if end > len(items) {
		end = len(items)
	}
	page := domain.Page[T]{Items: items[cursor.Offset:end]}
	if end < len(items) {
		page.NextPageToken = EncodeToken(Cursor{Offset: end})
	}
	return page, nil
}

func parsePageSize(raw string, opts Options) (int, error) {
	maxPageSize := opts.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	defaultPageSize := opts.DefaultPageSize
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if defaultPageSize > maxPageSize {
		defaultPageSize = maxPageSize
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultPageSize, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: must be an integer", ErrInvalidPageSize)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidPageSize)
	}
	if value > maxPageSize {
		value = maxPageSize
	}
	return value, nil
}
