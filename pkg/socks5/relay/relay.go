// Package relay implements the half-close-aware bidirectional copy
// between a SOCKS5 client and its upstream connection.
package relay

import (
	"io"
	"net"
	"sync"
)

// halfCloser is satisfied by net.TCPConn and any other connection that
// can shut down one direction without tearing down the whole socket.
type halfCloser interface {
	CloseWrite() error
}

// Stats reports the bytes copied in each direction, for metrics and logging.
type Stats struct {
	ClientToUpstream int64
	UpstreamToClient int64
}

// Run copies bytes in both directions between client and upstream
// until both sides have reached EOF. When one direction hits EOF, only
// that direction's destination is write-shutdown (via CloseWrite, when
// supported) rather than the whole connection, so the other direction
// can keep draining until it finishes on its own — mirroring a normal
// TCP half-close rather than truncating whichever side is still open.
func Run(client, upstream net.Conn) Stats {
	var stats Stats
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		n, _ := io.Copy(upstream, client)
		stats.ClientToUpstream = n
		halfClose(upstream)
	}()

	go func() {
		defer wg.Done()
		n, _ := io.Copy(client, upstream)
		stats.UpstreamToClient = n
		halfClose(client)
	}()

	wg.Wait()
	return stats
}

// halfClose shuts down the write side of conn if it supports
// CloseWrite, so the peer observes EOF without losing data still in
// flight the other way. Connections that don't support half-close
// (rare outside TCP) simply aren't shut down here; Run's caller closes
// both sockets fully once both copies finish.
func halfClose(conn net.Conn) {
	if hc, ok := conn.(halfCloser); ok {
		_ = hc.CloseWrite()
	}
}
