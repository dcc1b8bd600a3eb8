package socks5

import (
	"bytes"
	"net"
	"strings"
	"testing"
)

func TestReadGreetingOffersNoAuth(t *testing.T) {
	buf := bytes.NewReader([]byte{0x05, 0x01, 0x00})
	g, err := ReadGreeting(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.Offers(MethodNoAuth) {
		t.Fatal("expected NO_AUTH to be offered")
	}
	if g.Offers(MethodUserPass) {
		t.Fatal("did not expect USER_PASS to be offered")
	}
}

func TestReadGreetingZeroMethods(t *testing.T) {
	buf := bytes.NewReader([]byte{0x05, 0x00})
	g, err := ReadGreeting(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Methods) != 0 {
		t.Fatalf("expected no methods, got %v", g.Methods)
	}
}

func TestReadGreetingDropsUnknownMethods(t *testing.T) {
	// NMETHODS=255, all values unknown (0x10..0xFE are unassigned here
	// except 0xFF which the client should never legitimately offer).
	methods := make([]byte, 255)
	for i := range methods {
		methods[i] = 0x10
	}
	frame := append([]byte{0x05, 0xFF}, methods...)
	g, err := ReadGreeting(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Methods) != 0 {
		t.Fatalf("expected all unknown methods dropped, got %v", g.Methods)
	}
}

func TestReadGreetingBadVersion(t *testing.T) {
	buf := bytes.NewReader([]byte{0x04, 0x01, 0x00})
	if _, err := ReadGreeting(buf); err == nil {
		t.Fatal("expected error for bad version")
	}
}

func TestReadGreetingShortRead(t *testing.T) {
	buf := bytes.NewReader([]byte{0x05, 0x02, 0x00}) // claims 2 methods, has 1
	if _, err := ReadGreeting(buf); err == nil {
		t.Fatal("expected short-read error")
	}
}

func TestWriteMethodSelection(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMethodSelection(&buf, MethodUserPass); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x05, 0x02}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got %x, want %x", buf.Bytes(), want)
	}
}

func TestUserPassRoundTrip(t *testing.T) {
	frame := []byte{0x01, 0x04, 'u', 's', 'e', 'r', 0x04, 'p', 'a', 's', 's'}
	req, err := ReadUserPassRequest(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Username != "user" || req.Password != "pass" {
		t.Fatalf("got %+v", req)
	}

	var buf bytes.Buffer
	if err := WriteUserPassReply(&buf, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0x01, 0x00}) {
		t.Fatalf("got %x", buf.Bytes())
	}

	buf.Reset()
	if err := WriteUserPassReply(&buf, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0x01, 0x01}) {
		t.Fatalf("got %x", buf.Bytes())
	}
}

func TestUserPassBadVersion(t *testing.T) {
	frame := []byte{0x05, 0x01, 'a', 0x01, 'b'}
	if _, err := ReadUserPassRequest(bytes.NewReader(frame)); err == nil {
		t.Fatal("expected version mismatch error")
	}
}

func TestReadRequestIPv4(t *testing.T) {
	frame := []byte{0x05, 0x01, 0x00, 0x01, 127, 0, 0, 1, 0x1F, 0x90} // 127.0.0.1:8080
	req, err := ReadRequest(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Cmd != CmdConnect || req.Type != AddrIPv4 {
		t.Fatalf("got %+v", req)
	}
	if req.Host != "127.0.0.1" || req.Port != 8080 {
		t.Fatalf("got host=%q port=%d", req.Host, req.Port)
	}
}

func TestReadRequestIPv6(t *testing.T) {
	ip := net.ParseIP("::1").To16()
	frame := append([]byte{0x05, 0x01, 0x00, 0x04}, ip...)
	frame = append(frame, 0x00, 0x50)
	req, err := ReadRequest(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Type != AddrIPv6 || req.Host != "::1" || req.Port != 80 {
		t.Fatalf("got %+v", req)
	}
}

func TestReadRequestDomainMaxLength(t *testing.T) {
	domain := strings.Repeat("a", 255)
	frame := append([]byte{0x05, 0x01, 0x00, 0x03, 255}, []byte(domain)...)
	frame = append(frame, 0x00, 0x50)
	req, err := ReadRequest(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Host != domain {
		t.Fatalf("got host of length %d, want %d", len(req.Host), len(domain))
	}
}

func TestReadRequestDomainInvalidUTF8(t *testing.T) {
	domain := []byte{'e', 'x', 0xFF, 'm', 'p', 'l', 'e'}
	frame := append([]byte{0x05, 0x01, 0x00, 0x03, byte(len(domain))}, domain...)
	frame = append(frame, 0x00, 0x50)
	req, err := ReadRequest(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(req.Host, "�") {
		t.Fatalf("expected replacement character in %q", req.Host)
	}
}

func TestReadRequestUnsupportedAddrType(t *testing.T) {
	frame := []byte{0x05, 0x01, 0x00, 0x05, 0x00, 0x50}
	req, err := ReadRequest(bytes.NewReader(frame))
	if err == nil {
		t.Fatal("expected error for unsupported address type")
	}
	if req.Type != 0x05 {
		t.Fatalf("expected caller to still see the raw ATYP, got %v", req.Type)
	}
}

func TestPortBoundaries(t *testing.T) {
	for _, port := range []uint16{0, 65535} {
		frame := []byte{0x05, 0x01, 0x00, 0x01, 10, 0, 0, 1, byte(port >> 8), byte(port)}
		req, err := ReadRequest(bytes.NewReader(frame))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.Port != port {
			t.Fatalf("got port %d, want %d", req.Port, port)
		}
	}
}

func TestWriteReply(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReply(&buf, ReplySuccess, 4660); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x05, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0x12, 0x34}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got %x, want %x", buf.Bytes(), want)
	}
}

func TestParseCommandTotal(t *testing.T) {
	if _, ok := ParseCommand(0x02); !ok {
		t.Fatal("BIND should parse even though unsupported by the resolver")
	}
	if _, ok := ParseCommand(0x7F); ok {
		t.Fatal("unknown command should not parse")
	}
}
