package auth

import (
	"bytes"
	"context"
	"testing"

	"github.com/ferrolane/socks5d/pkg/socks5"
)

type mapStore map[string]string

func (m mapStore) Lookup(_ context.Context, name, pass string) bool {
	want, ok := m[name]
	return ok && want == pass
}

func TestSelectMethodPrefersUserPassWhenNotRequired(t *testing.T) {
	got := SelectMethod([]socks5.Method{socks5.MethodNoAuth, socks5.MethodUserPass}, false)
	if got != socks5.MethodUserPass {
		t.Fatalf("expected USER_PASS, got %v", got)
	}
}

func TestSelectMethodFallsBackToNoAuth(t *testing.T) {
	got := SelectMethod([]socks5.Method{socks5.MethodNoAuth}, false)
	if got != socks5.MethodNoAuth {
		t.Fatalf("expected NO_AUTH, got %v", got)
	}
}

func TestSelectMethodNoAcceptableWhenNothingOffered(t *testing.T) {
	got := SelectMethod([]socks5.Method{socks5.MethodGSSAPI}, false)
	if got != socks5.MethodNoAcceptable {
		t.Fatalf("expected NO_ACCEPTABLE, got %v", got)
	}
}

func TestSelectMethodRequireAuthRejectsNoAuthOnlyOffer(t *testing.T) {
	got := SelectMethod([]socks5.Method{socks5.MethodNoAuth}, true)
	if got != socks5.MethodNoAcceptable {
		t.Fatalf("expected NO_ACCEPTABLE when auth required but client only offers NO_AUTH, got %v", got)
	}
}

func TestSelectMethodRequireAuthAcceptsUserPass(t *testing.T) {
	got := SelectMethod([]socks5.Method{socks5.MethodNoAuth, socks5.MethodUserPass}, true)
	if got != socks5.MethodUserPass {
		t.Fatalf("expected USER_PASS, got %v", got)
	}
}

// loopback implements io.ReadWriter over two independent buffers, so a
// test can script client bytes "in" and inspect server bytes "out".
type loopback struct {
	in  *bytes.Reader
	out *bytes.Buffer
}

func (l *loopback) Read(p []byte) (int, error)  { return l.in.Read(p) }
func (l *loopback) Write(p []byte) (int, error) { return l.out.Write(p) }

func TestNegotiateNoAuthSuccess(t *testing.T) {
	var in bytes.Buffer
	in.Write([]byte{socks5.Version, 1, byte(socks5.MethodNoAuth)})
	conn := &loopback{in: bytes.NewReader(in.Bytes()), out: &bytes.Buffer{}}

	method, err := Negotiate(context.Background(), conn, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != socks5.MethodNoAuth {
		t.Fatalf("expected NO_AUTH selected, got %v", method)
	}
	want := []byte{socks5.Version, byte(socks5.MethodNoAuth)}
	if !bytes.Equal(conn.out.Bytes(), want) {
		t.Fatalf("unexpected method-selection reply: % x", conn.out.Bytes())
	}
}

func TestNegotiateUserPassSuccess(t *testing.T) {
	var in bytes.Buffer
	in.Write([]byte{socks5.Version, 1, byte(socks5.MethodUserPass)})
	in.Write([]byte{socks5.AuthVersion, 4})
	in.WriteString("user")
	in.Write([]byte{4})
	in.WriteString("pass")
	conn := &loopback{in: bytes.NewReader(in.Bytes()), out: &bytes.Buffer{}}

	store := mapStore{"user": "pass"}
	method, err := Negotiate(context.Background(), conn, store, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != socks5.MethodUserPass {
		t.Fatalf("expected USER_PASS selected, got %v", method)
	}
}

func TestNegotiateUserPassFailure(t *testing.T) {
	var in bytes.Buffer
	in.Write([]byte{socks5.Version, 1, byte(socks5.MethodUserPass)})
	in.Write([]byte{socks5.AuthVersion, 4})
	in.WriteString("user")
	in.Write([]byte{5})
	in.WriteString("wrong")
	conn := &loopback{in: bytes.NewReader(in.Bytes()), out: &bytes.Buffer{}}

	store := mapStore{"user": "pass"}
	_, err := Negotiate(context.Background(), conn, store, false)
	if err == nil {
		t.Fatal("expected error for mismatched credentials")
	}
}

func TestNegotiateNoAcceptable(t *testing.T) {
	var in bytes.Buffer
	in.Write([]byte{socks5.Version, 1, byte(socks5.MethodGSSAPI)})
	conn := &loopback{in: bytes.NewReader(in.Bytes()), out: &bytes.Buffer{}}

	_, err := Negotiate(context.Background(), conn, nil, false)
	if err == nil {
		t.Fatal("expected error when no acceptable method can be selected")
	}
	want := []byte{socks5.Version, byte(socks5.MethodNoAcceptable)}
	if !bytes.Equal(conn.out.Bytes(), want) {
		t.Fatalf("unexpected method-selection reply: % x", conn.out.Bytes())
	}
}
