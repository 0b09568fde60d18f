// Package proxy loads and selects from a pool of authenticated proxies.
package proxy

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/alanyoungcy/soldscout/internal/domain"
)

// Selection strategies.
const (
	SelectRotate = "rotate"
	SelectRandom = "random"
)

// Pool is an immutable set of proxies plus a selection strategy. Selection is
// a pure function of the row index, so concurrent rows need no coordination.
type Pool struct {
	proxies  []domain.Proxy
	strategy string
}

// Load reads a JSON array of proxies from path. An unreadable or malformed
// file is fatal for the run; an empty pool is only an error when the caller
// requires proxies.
func Load(path, strategy string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("proxy: read %s: %w", path, err)
	}

	var proxies []domain.Proxy
	if err := json.Unmarshal(data, &proxies); err != nil {
		return nil, fmt.Errorf("proxy: parse %s: %w", path, err)
	}
	if len(proxies) == 0 {
		return nil, fmt.Errorf("proxy: %s: %w", path, domain.ErrNoProxies)
	}

	return &Pool{proxies: proxies, strategy: strategy}, nil
}

// Disabled returns a pool whose Select always yields nil, for runs with
// proxying turned off.
func Disabled() *Pool {
	return &Pool{}
}

// Select picks the proxy for row index i. Rotation walks the pool in row
// order and wraps; random ignores the index. A disabled pool returns nil.
func (p *Pool) Select(i int) *domain.Proxy {
	if len(p.proxies) == 0 {
		return nil
	}
	switch p.strategy {
	case SelectRandom:
		return &p.proxies[rand.Intn(len(p.proxies))]
	default:
		return &p.proxies[i%len(p.proxies)]
	}
}

// Size returns the number of loaded proxies.
func (p *Pool) Size() int {
	return len(p.proxies)
}
