package proxy

import (
	"os"
	"path/filepath"
	"testing"
)

func writePool(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proxies.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write proxies: %v", err)
	}
	return path
}

func TestLoad_RotateSelection(t *testing.T) {
	path := writePool(t, `[
		{"proxyURL":"http://p1.example.com:8080","username":"u1","password":"s1"},
		{"proxyURL":"http://p2.example.com:8080","username":"u2","password":"s2"},
		{"proxyURL":"http://p3.example.com:8080","username":"u3","password":"s3"}
	]`)

	pool, err := Load(path, SelectRotate)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pool.Size() != 3 {
		t.Fatalf("size = %d, want 3", pool.Size())
	}

	// Rotation walks the pool in row order and wraps.
	wantHosts := []string{
		"http://p1.example.com:8080",
		"http://p2.example.com:8080",
		"http://p3.example.com:8080",
		"http://p1.example.com:8080",
	}
	for i, want := range wantHosts {
		px := pool.Select(i)
		if px == nil || px.URL != want {
			t.Fatalf("Select(%d) = %+v, want %s", i, px, want)
		}
	}

	if pool.Select(1).Username != "u2" {
		t.Fatalf("credentials must travel with the proxy")
	}
}

func TestLoad_RandomSelectionStaysInPool(t *testing.T) {
	path := writePool(t, `[
		{"proxyURL":"http://p1.example.com:8080"},
		{"proxyURL":"http://p2.example.com:8080"}
	]`)

	pool, err := Load(path, SelectRandom)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	valid := map[string]bool{
		"http://p1.example.com:8080": true,
		"http://p2.example.com:8080": true,
	}
	for i := 0; i < 50; i++ {
		px := pool.Select(i)
		if px == nil || !valid[px.URL] {
			t.Fatalf("Select returned out-of-pool proxy: %+v", px)
		}
	}
}

func TestLoad_Failures(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json"), SelectRotate); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := Load(writePool(t, "not json"), SelectRotate); err == nil {
		t.Fatalf("expected error for malformed file")
	}
	if _, err := Load(writePool(t, "[]"), SelectRotate); err == nil {
		t.Fatalf("expected error for empty pool")
	}
}

func TestDisabled(t *testing.T) {
	pool := Disabled()
	if pool.Select(0) != nil || pool.Select(7) != nil {
		t.Fatalf("disabled pool must select nil")
	}
	if pool.Size() != 0 {
		t.Fatalf("disabled pool size = %d", pool.Size())
	}
}
