package shared

import (
	"net/url"
	"strconv"
)

// QueryInt reads an integer query parameter, falling back on absence or
// garbage.
func QueryInt(q url.Values, key string, fallback int) int {
	v := q.Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// QueryBool reads a boolean query parameter ("true"/"1" are true).
func QueryBool(q url.Values, key string) bool {
	v := q.Get(key)
	return v == "true" || v == "1"
}
