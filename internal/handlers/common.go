package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/platform/httpx"
	"github.com/tourdesk/backoffice/internal/platform/pagination"
	"github.com/tourdesk/backoffice/internal/platform/requestctx"
	"github.com/tourdesk/backoffice/internal/services"
)

const maxRequestBody = 256 * 1024

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
)

var listPageOptions = pagination.Options{DefaultPageSize: pagination.DefaultPageSize, MaxPageSize: pagination.DefaultMaxPageSize}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// decodeBody reads a bounded JSON body into dst, writing the error response itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	body, err := readLimitedBody(r, maxRequestBody)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return false
	}
	return true
}

func parsePagination(w http.ResponseWriter, r *http.Request) (domain.Pagination, bool) {
	pager, err := pagination.Parse(r.URL.Query(), listPageOptions)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return domain.Pagination{}, false
	}
	return pager, true
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	httpx.WriteJSON(w, status, payload)
}

// writeServiceError maps service sentinels onto HTTP statuses.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var (
		validation *services.ValidationError
		notFound   *services.NotFoundError
		overlap    *services.VersionConflictError
	)
	switch {
	case errors.As(err, &validation):
		apiErr := httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest)
		if validation.Field != "" {
			apiErr = apiErr.WithDetails(map[string]any{"field": validation.Field})
		}
		httpx.WriteError(ctx, w, apiErr)
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrCounterInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.As(err, &notFound):
		httpx.WriteError(ctx, w, httpx.NewError(resourceCode(notFound.Resource)+"_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.As(err, &overlap):
		httpx.WriteError(ctx, w, httpx.NewError("version_overlap", err.Error(), http.StatusConflict).
			WithDetails(map[string]any{"conflictingIds": overlap.ConflictingIDs}))
	case errors.Is(err, services.ErrConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrUnavailable), errors.Is(err, services.ErrCounterExhausted):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "dependency temporarily unavailable", http.StatusServiceUnavailable))
	default:
		requestctx.Logger(ctx).Sugar().Errorw("request failed", "error", err)
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process request", http.StatusInternalServerError))
	}
}

func resourceCode(resource string) string {
	return strings.ReplaceAll(strings.TrimSpace(resource), " ", "_")
}

// apiDate accepts RFC 3339 timestamps as well as bare YYYY-MM-DD dates, which are taken as UTC midnight.
type apiDate struct {
	time.Time
}

func (d *apiDate) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		d.Time = t.UTC()
		return nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return fmt.Errorf("invalid date %q", raw)
	}
	d.Time = t.UTC()
	return nil
}

func (d *apiDate) value() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}

func (d *apiDate) pointer() *time.Time {
	if d == nil || d.Time.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := formatTime(*t)
	return &s
}
