package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// requestID returns the caller's X-Request-ID, assigning a fresh one when
// the header is absent so handlers and logs share the same value.
func requestID(r *http.Request) string {
	id := r.Header.Get("X-Request-ID")
	if id == "" {
		id = generateRequestID()
		r.Header.Set("X-Request-ID", id)
	}
	return id
}

// clientIP returns the remote host, preferring X-Forwarded-For when the
// request comes from a loopback proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return strings.TrimSpace(strings.Split(xff, ",")[0])
		}
	}
	return host
}
