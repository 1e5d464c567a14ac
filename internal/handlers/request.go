package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200

	timeFormat = time.RFC3339
)

func jsonDecode(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// paginationParams reads limit and offset query parameters, clamping to
// sane bounds
func paginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
