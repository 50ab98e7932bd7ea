package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// originPolicy is the browser origin allow-list shared by CORS and websocket upgrades.
type originPolicy struct {
	all     bool
	allowed []string
}

// parseOrigins reads HTTP_CORS_ORIGINS; empty or "*" allows every origin.
func parseOrigins(origins string) originPolicy {
	var allowed []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, strings.TrimRight(o, "/"))
		}
	}
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		return originPolicy{all: true}
	}
	return originPolicy{allowed: allowed}
}

// checkOrigin accepts requests without an Origin header, same-host requests and listed origins.
func (p originPolicy) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if p.all || origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	origin = strings.TrimRight(origin, "/")
	for _, allowed := range p.allowed {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (p originPolicy) upgrader() websocket.Upgrader {
	return websocket.Upgrader{CheckOrigin: p.checkOrigin}
}
