package domain

// Proxy is one entry from the proxy pool file. Lifetime is the length of one
// session; proxies are never shared between concurrent workers.
type Proxy struct {
	URL      string `json:"proxyURL"`
	Username string `json:"username"`
	Password string `json:"password"`
}
