package tls

import (
	"crypto/tls"
	"net/http"

	"golang.org/x/crypto/acme/autocert"
)

// AutoManager obtains and renews certificates from Let's Encrypt.
type AutoManager struct {
	manager *autocert.Manager
	domains []string
}

// NewAutoManager configures autocert for the given domains, caching
// issued certificates under cacheDir.
func NewAutoManager(email string, domains []string, cacheDir string) *AutoManager {
	return &AutoManager{
		manager: &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Email:      email,
			HostPolicy: autocert.HostWhitelist(domains...),
			Cache:      autocert.DirCache(cacheDir),
		},
		domains: domains,
	}
}

// Domains returns the domains certificates are managed for.
func (a *AutoManager) Domains() []string { return a.domains }

// TLSConfig returns a server TLS config that fetches certificates on
// demand, renewing them before expiry.
func (a *AutoManager) TLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: a.manager.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}

// HTTPHandler serves HTTP-01 challenges, delegating everything else
// to fallback.
func (a *AutoManager) HTTPHandler(fallback http.Handler) http.Handler {
	return a.manager.HTTPHandler(fallback)
}
