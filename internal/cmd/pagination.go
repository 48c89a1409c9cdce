package cmd

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// parseParams turns repeated key=value flags into query parameters.
// Repeating a key sends it several times.
func parseParams(pairs []string) (url.Values, error) {
	params := url.Values{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q (expected key=value)", pair)
		}
		params.Add(key, strings.TrimSpace(value))
	}
	return params, nil
}

// pageParams sets the server page and page size. page <= 0 leaves the
// page to the server; size <= 0 leaves the page size to the server.
func pageParams(params url.Values, page, size int) url.Values {
	if params == nil {
		params = url.Values{}
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if size > 0 && params.Get("page_size") == "" {
		params.Set("page_size", strconv.Itoa(size))
	}
	return params
}

// paginateRows slices rows that were fetched in full, returning the page,
// the total count and the effective page number.
func paginateRows(rows []any, page, limit int) ([]any, int, int) {
	total := len(rows)
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return rows, total, page
	}

	start := (page - 1) * limit
	end := start + limit

	if start >= total {
		return []any{}, total, page
	}
	if end > total {
		end = total
	}

	return rows[start:end], total, page
}
