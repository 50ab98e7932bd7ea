package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nurpe/fleetwatch/internal/auth"
	"github.com/nurpe/fleetwatch/internal/http/middleware"
	"github.com/nurpe/fleetwatch/internal/live"
)

type staticFeed string

func (f staticFeed) Subscribe(ctx context.Context, _ live.Topic) (<-chan string, error) {
	out := make(chan string, 1)
	out <- string(f)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

func newStreamServer(t *testing.T, origins string) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := auth.NewParser("test-secret")
	handler := NewHandler(Services{Feed: staticFeed(`{"vehicle_id":"v1"}`)}, zerolog.Nop())
	server := httptest.NewServer(NewRouter(handler, middleware.Auth(tokens), origins, zerolog.Nop(), "test"))
	t.Cleanup(server.Close)

	token, err := tokens.Issue(*adminPrincipal(), time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return server, token
}

func dialStream(server *httptest.Server, token, origin string) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/stream/alerts"
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func TestStreamOriginCheck(t *testing.T) {
	server, token := newStreamServer(t, "https://ops.example.com, https://fleet.example.com")

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"listed origin", "https://fleet.example.com", true},
		{"no origin header", "", true},
		{"foreign origin", "https://evil.example.net", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := dialStream(server, token, tt.origin)
			if !tt.ok {
				if err == nil {
					conn.Close()
					t.Fatalf("foreign origin must be rejected")
				}
				if resp == nil || resp.StatusCode != http.StatusForbidden {
					t.Fatalf("expected 403 handshake, got %v", resp)
				}
				return
			}
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			defer conn.Close()

			var msg struct {
				Type string         `json:"type"`
				Data map[string]any `json:"data"`
			}
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("read: %v", err)
			}
			if msg.Type != "alert" || msg.Data["vehicle_id"] != "v1" {
				t.Fatalf("unexpected frame %+v", msg)
			}
		})
	}
}

func TestParseOrigins(t *testing.T) {
	if p := parseOrigins("*"); !p.all {
		t.Fatalf("* must allow every origin")
	}
	if p := parseOrigins(""); !p.all {
		t.Fatalf("empty list must allow every origin")
	}
	p := parseOrigins(" https://a.example.com/ ,https://b.example.com")
	if p.all || len(p.allowed) != 2 || p.allowed[0] != "https://a.example.com" {
		t.Fatalf("unexpected policy %+v", p)
	}
}

func TestCheckOrigin(t *testing.T) {
	policy := parseOrigins("https://ops.example.com")
	tests := []struct {
		name   string
		host   string
		origin string
		want   bool
	}{
		{"listed", "api.example.com", "https://OPS.example.com/", true},
		{"same host", "api.example.com", "https://api.example.com", true},
		{"no origin", "api.example.com", "", true},
		{"foreign", "api.example.com", "https://evil.example.net", false},
		{"listed host different scheme", "api.example.com", "http://ops.example.com", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/stream/alerts", nil)
		req.Host = tt.host
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := policy.checkOrigin(req); got != tt.want {
			t.Fatalf("%s: checkOrigin(%q) = %v, want %v", tt.name, tt.origin, got, tt.want)
		}
	}
	if !parseOrigins("*").checkOrigin(httptest.NewRequest(http.MethodGet, "/", nil)) {
		t.Fatalf("wildcard must accept")
	}
}
