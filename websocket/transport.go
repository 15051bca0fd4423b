package websocket

import (
	"bufio"
	"io"
	"net"
)

// Transport is the byte stream a Conn runs over.
//
// Reads deliver inbound bytes in arrival order; io.EOF signals the end of
// the stream. Writes must preserve order. CloseWrite half-closes the
// outbound direction after a close frame with a status code was sent.
//
// If the Transport also implements io.Closer, Conn.Close releases it.
type Transport interface {
	io.Reader
	io.Writer
	CloseWrite() error
}

// NetTransport adapts a net.Conn to Transport.
//
// br, when non-nil, is read from instead of conn so that bytes already
// buffered during the HTTP handshake are not lost. CloseWrite uses the
// connection's own half-close (TCP, TLS, Unix sockets) and falls back to a
// full Close otherwise.
func NetTransport(conn net.Conn, br *bufio.Reader) Transport {
	t := &netTransport{Conn: conn, r: conn}
	if br != nil {
		t.r = br
	}
	return t
}

type netTransport struct {
	net.Conn
	r io.Reader
}

func (t *netTransport) Read(p []byte) (int, error) {
	return t.r.Read(p)
}

func (t *netTransport) CloseWrite() error {
	if cw, ok := t.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return t.Conn.Close()
}
