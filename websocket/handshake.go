package websocket

import (
	"crypto/sha1" // #nosec G505 - SHA-1 required by RFC 6455 Section 1.3
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// acceptGUID is appended to Sec-WebSocket-Key before hashing (RFC 6455
// Section 1.3).
const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// defaultReadBufferSize is the transport read size when none is configured.
const defaultReadBufferSize = 4096

// UpgradeOptions configures Upgrade. The zero value accepts every origin and
// applies no message size limit.
type UpgradeOptions struct {
	// Options configures the resulting Conn.
	Options

	// CheckOrigin decides whether the request's Origin is acceptable.
	// nil allows all origins; use CheckSameOrigin for browser-facing
	// endpoints.
	CheckOrigin func(*http.Request) bool
}

// handshakeChecks run in order; the first failure is reported.
var handshakeChecks = []struct {
	err error
	ok  func(*http.Request) bool
}{
	{ErrInvalidMethod, func(r *http.Request) bool {
		return r.Method == http.MethodGet
	}},
	{ErrMissingUpgrade, func(r *http.Request) bool {
		return headerContainsToken(r.Header.Get("Upgrade"), "websocket")
	}},
	{ErrMissingConnection, func(r *http.Request) bool {
		return headerContainsToken(r.Header.Get("Connection"), "upgrade")
	}},
	{ErrInvalidVersion, func(r *http.Request) bool {
		return r.Header.Get("Sec-WebSocket-Version") == "13"
	}},
	{ErrMissingSecKey, func(r *http.Request) bool {
		return r.Header.Get("Sec-WebSocket-Key") != ""
	}},
}

// Upgrade performs the server side of the opening handshake (RFC 6455
// Section 4.2) and returns the connection.
//
// A request that is not a valid version 13 upgrade is answered with
// 400 Bad Request and "Connection: close"; a version mismatch also carries
// "Sec-WebSocket-Version: 13". A ResponseWriter without http.Hijacker is
// answered with 500. The returned error names the failed check.
// On success the HTTP connection is hijacked and a raw 101 response is
// written, so the caller must not touch w afterwards.
//
// Example:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    conn, err := websocket.Upgrade(w, r, nil)
//	    if err != nil {
//	        return
//	    }
//	    defer conn.Close()
//
//	    for ev, err := range conn.Events() {
//	        if err != nil {
//	            return
//	        }
//	        if ev.Type.IsData() {
//	            conn.Write(ev.Type, ev.Payload())
//	        }
//	    }
//	}
func Upgrade(w http.ResponseWriter, r *http.Request, opts *UpgradeOptions) (*Conn, error) {
	if opts == nil {
		opts = &UpgradeOptions{}
	}

	if err := checkHandshake(r, opts); err != nil {
		reject(w, err)
		return nil, err
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		reject(w, ErrHijackFailed)
		return nil, ErrHijackFailed
	}

	netConn, rw, err := hijacker.Hijack()
	if err != nil {
		return nil, err
	}

	var resp strings.Builder
	resp.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	resp.WriteString("Upgrade: websocket\r\n")
	resp.WriteString("Connection: upgrade\r\n")
	resp.WriteString("Sec-WebSocket-Accept: ")
	resp.WriteString(ComputeAcceptKey(r.Header.Get("Sec-WebSocket-Key")))
	resp.WriteString("\r\n\r\n")

	_, err = rw.WriteString(resp.String())
	if err == nil {
		err = rw.Flush()
	}
	if err != nil {
		_ = netConn.Close()
		return nil, err
	}

	conn := NewConn(NetTransport(netConn, rw.Reader), &opts.Options)
	opts.logger().Debug("websocket: upgraded", "conn", conn.ID(), "remote", r.RemoteAddr)

	return conn, nil
}

// checkHandshake validates the client's opening handshake.
func checkHandshake(r *http.Request, opts *UpgradeOptions) error {
	for _, c := range handshakeChecks {
		if !c.ok(r) {
			return c.err
		}
	}

	if opts.CheckOrigin != nil && !opts.CheckOrigin(r) {
		return ErrOriginDenied
	}
	return nil
}

// reject answers a failed handshake and asks net/http to close the
// connection afterwards. Client mistakes get 400; a writer that cannot be
// hijacked is the server's fault and gets 500.
func reject(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, ErrHijackFailed):
		status = http.StatusInternalServerError
	case errors.Is(err, ErrInvalidVersion):
		w.Header().Set("Sec-WebSocket-Version", "13")
	}

	w.Header().Set("Connection", "close")
	http.Error(w, err.Error(), status)
}

func (o *UpgradeOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// ComputeAcceptKey returns the Sec-WebSocket-Accept value for a client key:
// base64(SHA-1(key + "258EAFA5-E914-47DA-95CA-C5AB0DC85B11")).
func ComputeAcceptKey(key string) string {
	sum := sha1.Sum([]byte(key + acceptGUID)) // #nosec G401 - not used for security
	return base64.StdEncoding.EncodeToString(sum[:])
}

// headerContainsToken reports whether the comma-separated header value
// lists token, compared case-insensitively.
func headerContainsToken(header, token string) bool {
	for part := range strings.SplitSeq(header, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// CheckSameOrigin accepts requests without an Origin header (non-browser
// clients) and requests whose Origin matches the Host they were sent to.
func CheckSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return origin == scheme+"://"+r.Host
}
