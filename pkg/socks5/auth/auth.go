// Package auth drives SOCKS5 method selection and, when negotiated,
// the RFC 1929 username/password sub-negotiation.
package auth

import (
	"context"
	"io"

	"github.com/ferrolane/socks5d/pkg/apperr"
	"github.com/ferrolane/socks5d/pkg/credentials"
	"github.com/ferrolane/socks5d/pkg/socks5"
)

// SelectMethod picks the method this server will use, given the
// client's offered list. USER_PASS is preferred over NO_AUTH whenever
// the client offers it, whether or not a credential store is
// configured. When requireAuth is set, a client that does not offer
// USER_PASS gets MethodNoAcceptable. When neither is offered, the RFC-correct
// response is MethodNoAcceptable — the client's greeting must be
// rejected outright rather than silently downgraded. This deliberately
// diverges from a fallback that returns NO_AUTH regardless of what was
// offered: RFC 1928 §3 requires the selected method come from METHODS.
func SelectMethod(offered []socks5.Method, requireAuth bool) socks5.Method {
	hasUserPass := false
	hasNoAuth := false
	for _, m := range offered {
		switch m {
		case socks5.MethodUserPass:
			hasUserPass = true
		case socks5.MethodNoAuth:
			hasNoAuth = true
		}
	}

	if requireAuth {
		if hasUserPass {
			return socks5.MethodUserPass
		}
		return socks5.MethodNoAcceptable
	}

	if hasUserPass {
		return socks5.MethodUserPass
	}
	if hasNoAuth {
		return socks5.MethodNoAuth
	}
	return socks5.MethodNoAcceptable
}

// Negotiate reads the greeting, writes the method-selection reply, and
// if USER_PASS was selected, runs the credential sub-negotiation. It
// returns the selected method so the caller can log it, or an
// *apperr.AppError describing why negotiation failed.
func Negotiate(ctx context.Context, rw io.ReadWriter, store credentials.Store, requireAuth bool) (socks5.Method, error) {
	greeting, err := socks5.ReadGreeting(rw)
	if err != nil {
		return 0, apperr.New(apperr.KindProtocol, "read greeting").WithInternal(err)
	}

	method := SelectMethod(greeting.Methods, requireAuth)
	if err := socks5.WriteMethodSelection(rw, method); err != nil {
		return 0, apperr.New(apperr.KindProtocol, "write method selection").WithInternal(err)
	}

	if method == socks5.MethodNoAcceptable {
		return method, apperr.New(apperr.KindProtocol, "no acceptable authentication method")
	}

	if method == socks5.MethodUserPass {
		if err := runUserPass(ctx, rw, store); err != nil {
			return method, err
		}
	}

	return method, nil
}

// runUserPass reads the USER_PASS request, checks it against store,
// and writes the reply. A credential mismatch writes a failure reply
// and returns an error — the caller must close the connection, per
// RFC 1929 §2 ("the client MUST close the connection" on failure,
// mirrored server-side since the server cannot rely on the client).
func runUserPass(ctx context.Context, rw io.ReadWriter, store credentials.Store) error {
	req, err := socks5.ReadUserPassRequest(rw)
	if err != nil {
		return apperr.New(apperr.KindProtocol, "read user/pass request").WithInternal(err)
	}

	ok := store != nil && store.Lookup(ctx, req.Username, req.Password)
	if werr := socks5.WriteUserPassReply(rw, ok); werr != nil {
		return apperr.New(apperr.KindProtocol, "write user/pass reply").WithInternal(werr)
	}
	if !ok {
		return apperr.New(apperr.KindCredential, "invalid username or password")
	}
	return nil
}
