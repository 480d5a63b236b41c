package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const (
	wsDefaultWriteTimeout = 5 * time.Second
	wsDefaultPingEvery    = 30 * time.Second
	wsDefaultPingTimeout  = 10 * time.Second

	// Origin is required by default and only localhost is allowed,
	// secure-by-default for dev.
	wsDefaultOriginRequired = true
	wsDefaultAllowedOrigins = "http://localhost,http://127.0.0.1"
)

// Authorizer decides whether the request carries a valid admin session.
type Authorizer func(r *http.Request) error

// Gateway is the WebSocket entrypoint of the admin activity feed. It
// enforces origin policy and admin authorization, then streams hub
// events until the console disconnects.
type Gateway struct {
	log       *slog.Logger
	hub       *Hub
	authorize Authorizer

	devInsecure    bool
	originRequired bool
	allowedOrigins []string

	// Derived for websocket.Accept origin checks: Accept authorizes
	// same-host origins by default, cross-origin needs OriginPatterns.
	originPatterns []string

	writeTimeout time.Duration
	pingEvery    time.Duration
	pingTimeout  time.Duration
}

// NewGateway constructs a gateway with secure defaults. authorize must
// not be nil.
func NewGateway(log *slog.Logger, hub *Hub, authorize Authorizer) *Gateway {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if hub == nil {
		hub = NewHub(log, 0)
	}

	g := &Gateway{log: log, hub: hub, authorize: authorize}

	g.devInsecure = envBoolWS("USAFFE_WS_DEV_INSECURE", false)
	g.originRequired = envBoolWS("USAFFE_WS_ORIGIN_REQUIRED", wsDefaultOriginRequired)
	g.allowedOrigins = envCSVWS("USAFFE_WS_ALLOWED_ORIGINS", wsDefaultAllowedOrigins)
	g.originPatterns = deriveOriginPatterns(g.allowedOrigins)

	g.writeTimeout = envDurationWS("USAFFE_WS_WRITE_TIMEOUT", wsDefaultWriteTimeout)
	g.pingEvery = envDurationWS("USAFFE_WS_PING_INTERVAL", wsDefaultPingEvery)
	g.pingTimeout = envDurationWS("USAFFE_WS_PING_TIMEOUT", wsDefaultPingTimeout)

	return g
}

// ServeHTTP adapter so the gateway mounts as an http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS authorizes, upgrades, and streams.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	if err := g.enforceOrigin(r); err != nil {
		g.log.Info("feed.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := g.authorize(r); err != nil {
		g.log.Info("feed.reject.auth", "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     g.originPatterns,
		InsecureSkipVerify: g.devInsecure,
	})
	if err != nil {
		g.log.Error("feed.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	events, cancel := g.hub.Subscribe()
	defer cancel()

	// The feed is write-only; CloseRead surfaces peer disconnects via
	// context cancellation.
	ctx := conn.CloseRead(r.Context())

	g.log.Info("feed.connect", "remote", r.RemoteAddr)

	pings := time.NewTicker(g.pingEvery)
	defer pings.Stop()

	for {
		select {
		case <-ctx.Done():
			g.log.Info("feed.disconnect", "remote", r.RemoteAddr)
			return

		case <-pings.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, g.pingTimeout)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				g.log.Info("feed.ping.fail", "remote", r.RemoteAddr, "err", err)
				return
			}

		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(ctx, conn, ev, g.writeTimeout); err != nil {
				g.log.Info("feed.write.fail", "remote", r.RemoteAddr, "close_status", websocket.CloseStatus(err), "err", err)
				return
			}
		}
	}
}

func writeEvent(parent context.Context, conn *websocket.Conn, ev Event, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

// ---- origin policy ----

func (g *Gateway) enforceOrigin(r *http.Request) error {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		if g.originRequired {
			return errors.New("missing origin")
		}
		return nil
	}

	if len(g.allowedOrigins) == 0 {
		return errors.New("origin not allowed (no allowlist)")
	}

	originHost := originHostOnly(origin)

	for _, a := range g.allowedOrigins {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if a == "*" {
			// Strongly discouraged, but honored if explicitly configured.
			return nil
		}
		if origin == a {
			return nil
		}
		if originHost != "" && originHost == originHostOnly(a) {
			return nil
		}
	}

	return fmt.Errorf("origin not allowed: %s", origin)
}

func originHostOnly(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		h := strings.TrimSpace(u.Host)
		if h == "" {
			return ""
		}
		if host, _, err := net.SplitHostPort(h); err == nil {
			return strings.ToLower(host)
		}
		return strings.ToLower(h)
	}

	if host, _, err := net.SplitHostPort(s); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(s)
}

func deriveOriginPatterns(allowed []string) []string {
	seen := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		h := originHostOnly(a)
		if h == "" || h == "*" {
			continue
		}
		seen[h] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}

	// Stable in-file sort (avoid importing sort just for this).
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j] < out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// ---- env helpers ----

func envBoolWS(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDurationWS(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envCSVWS(key string, def string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		raw = def
	}
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
