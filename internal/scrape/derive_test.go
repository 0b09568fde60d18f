package scrape

import (
	"net/url"
	"testing"
)

func TestValidSourceURL(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want bool
	}{
		{"search url", "https://jp.mercari.com/search?keyword=camera", true},
		{"http scheme", "http://jp.mercari.com/search?keyword=camera", true},
		{"missing search path", "https://jp.mercari.com/item/m123", false},
		{"no host", "https:///search", false},
		{"not a url", "definitely not a url", false},
		{"ftp scheme", "ftp://jp.mercari.com/search", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidSourceURL(tc.raw); got != tc.want {
				t.Fatalf("ValidSourceURL(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestDeriveQueryURL_ForcesParams(t *testing.T) {
	derived, err := DeriveQueryURL("https://jp.mercari.com/search?keyword=camera&status=on_sale", 4500)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	u, err := url.Parse(derived)
	if err != nil {
		t.Fatalf("parse derived: %v", err)
	}

	q := u.Query()
	if got := q.Get("price_max"); got != "4500" {
		t.Fatalf("price_max = %q, want 4500", got)
	}
	if got := q.Get("status"); got != "sold_out" {
		t.Fatalf("status = %q, want sold_out", got)
	}
	if got := q.Get("order"); got != "desc" {
		t.Fatalf("order = %q, want desc", got)
	}
	if got := q.Get("sort"); got != "created_time" {
		t.Fatalf("sort = %q, want created_time", got)
	}
	if got := q.Get("keyword"); got != "camera" {
		t.Fatalf("keyword = %q, original param must survive", got)
	}
}

func TestDeriveQueryURL_Deterministic(t *testing.T) {
	const src = "https://jp.mercari.com/search?keyword=lens"
	a, err := DeriveQueryURL(src, 1200)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, err := DeriveQueryURL(src, 1200)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if a != b {
		t.Fatalf("derive not deterministic: %q vs %q", a, b)
	}
}
