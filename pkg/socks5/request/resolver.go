// Package request parses the CONNECT request frame, dials the
// requested upstream, and maps dial failures onto SOCKS5 reply codes.
package request

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/ferrolane/socks5d/pkg/apperr"
	"github.com/ferrolane/socks5d/pkg/socks5"
)

// Dialer is the subset of net.Dialer this package needs, so tests can
// substitute a fake without opening real sockets.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Resolve reads a request frame, validates it, dials the upstream on
// success, and writes the corresponding reply frame. On success it
// returns the established upstream connection. On an unrecognized
// ATYP, an unsupported command, or a dial failure it writes the failure
// reply before returning the error; on any other read failure (short
// read, bad version, zero domain length) it returns the error without
// writing a reply. Either way the caller only needs to close the client
// connection.
func Resolve(ctx context.Context, rw io.ReadWriter, dialer Dialer) (net.Conn, error) {
	req, err := socks5.ReadRequest(rw)
	if err != nil {
		// ReadRequest still returns the partially-populated Request (VER,
		// CMD, ATYP already parsed) alongside the error whenever the
		// failure happened while reading the address body, so an
		// unrecognized ATYP can still be answered with the reply frame
		// spec.md §4.4 step 3 requires instead of a silent close.
		if req != nil {
			if _, ok := socks5.ParseAddrType(byte(req.Type)); !ok {
				writeFailure(rw, socks5.ReplyAddressNotSupported)
				return nil, apperr.NewReply(apperr.KindProtocol, "unsupported address type", socks5.ReplyAddressNotSupported).WithInternal(err)
			}
		}
		return nil, apperr.New(apperr.KindProtocol, "read request").WithInternal(err)
	}

	if req.Cmd != socks5.CmdConnect {
		writeFailure(rw, socks5.ReplyCommandNotSupported)
		return nil, apperr.NewReply(apperr.KindProtocol, "unsupported command "+req.Cmd.String(), socks5.ReplyCommandNotSupported)
	}

	upstream, err := dialer.DialContext(ctx, "tcp", req.Target())
	if err != nil {
		code := classifyDialError(err)
		// Failure replies echo the requested destination port, since
		// no local upstream socket exists to report a port from.
		socks5.WriteReply(rw, code, req.Port)
		return nil, apperr.NewReply(apperr.KindDial, "dial upstream", code).WithInternal(err)
	}

	bindPort := localPort(upstream)
	if err := socks5.WriteReply(rw, socks5.ReplySuccess, bindPort); err != nil {
		upstream.Close()
		return nil, apperr.New(apperr.KindProtocol, "write success reply").WithInternal(err)
	}

	return upstream, nil
}

// writeFailure best-effort writes a failure reply; the connection is
// being torn down regardless of whether this write succeeds.
func writeFailure(w io.Writer, code socks5.ReplyCode) {
	_ = socks5.WriteReply(w, code, 0)
}

// localPort extracts the local TCP port of the dialed upstream
// connection, used to populate BND.PORT on a successful reply.
func localPort(conn net.Conn) uint16 {
	addr, ok := conn.LocalAddr().(*net.TCPAddr)
	if !ok {
		return 0
	}
	return uint16(addr.Port)
}

// classifyDialError maps a net.Dial failure to the reply code table:
// connection refused -> ReplyConnectionRefused, connection reset ->
// ReplyConnectionNotAllowed, timeout/TTL expiry -> ReplyHostUnreachable,
// anything else -> ReplyOther.
func classifyDialError(err error) socks5.ReplyCode {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return socks5.ReplyHostUnreachable
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return socks5.ReplyConnectionRefused
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return socks5.ReplyConnectionNotAllowed
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return socks5.ReplyHostUnreachable
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return socks5.ReplyHostUnreachable
		}
		return socks5.ReplyOther
	}

	return socks5.ReplyOther
}

// netDialer adapts *net.Dialer to the Dialer interface.
type netDialer struct {
	d *net.Dialer
}

// NewDialer returns a Dialer backed by a real *net.Dialer with the
// given connect timeout (zero means no explicit timeout beyond the
// context's own deadline).
func NewDialer(d *net.Dialer) Dialer {
	return &netDialer{d: d}
}

func (n *netDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return n.d.DialContext(ctx, network, address)
}
