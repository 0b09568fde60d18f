// Package scrape implements the per-query scrape machinery: response
// extraction, aggregation, URL derivation, and the retry controller that
// wraps one navigate-extract-aggregate unit of work.
package scrape

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// searchPathMarker is the path fragment a source URL must contain to be
// treated as a marketplace search query.
const searchPathMarker = "/search"

// ValidSourceURL reports whether raw looks like a marketplace search URL.
// Rows failing this check are short-circuited to an error output without any
// navigation.
func ValidSourceURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}
	return strings.Contains(u.Path, searchPathMarker)
}

// DeriveQueryURL rewrites the source search URL with forced sort and filter
// parameters, scoping results to a price ceiling and sold-out status. It is a
// deterministic function of (source, priceMax).
func DeriveQueryURL(source string, priceMax int) (string, error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("scrape: parse source url: %w", err)
	}

	q := u.Query()
	q.Set("price_max", strconv.Itoa(priceMax))
	q.Set("status", "sold_out")
	q.Set("order", "desc")
	q.Set("sort", "created_time")
	u.RawQuery = q.Encode()

	return u.String(), nil
}
