package validator

import "testing"

func TestRequiredRejectsBlank(t *testing.T) {
	v := New()
	v.Required("users", "  ")
	if !v.HasErrors() {
		t.Fatal("expected blank value to fail Required")
	}
}

func TestPortRange(t *testing.T) {
	v := New()
	v.Port("port", 80, 1024, 65535)
	if !v.HasErrors() {
		t.Fatal("expected port below range to fail")
	}

	v2 := New()
	v2.Port("port", 1080, 1024, 65535)
	if v2.HasErrors() {
		t.Fatal("expected in-range port to pass")
	}
}

func TestIPValidation(t *testing.T) {
	v := New()
	v.IP("ip", "not-an-ip")
	if !v.HasErrors() {
		t.Fatal("expected invalid IP to fail")
	}

	v2 := New()
	v2.IP("ip", "0.0.0.0")
	v2.IP("ip6", "::1")
	if v2.HasErrors() {
		t.Fatal("expected valid IPv4/IPv6 to pass")
	}
}

func TestInValidation(t *testing.T) {
	v := New()
	v.In("proto", "udp", []string{"tcp"})
	if !v.HasErrors() {
		t.Fatal("expected value outside allowed set to fail")
	}
}

func TestErrorNilWhenNoFailures(t *testing.T) {
	v := New()
	v.Required("port", "1080")
	if err := v.Error(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
