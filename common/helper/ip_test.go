package helper

import (
	"net/http/httptest"
	"testing"
)

func TestRealIP(t *testing.T) {
	cases := []struct {
		name       string
		realIP     string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"x-real-ip wins", "203.0.113.7", "198.51.100.1", "10.0.0.1:1234", "203.0.113.7"},
		{"forwarded first hop", "", "198.51.100.1, 10.0.0.2", "10.0.0.1:1234", "198.51.100.1"},
		{"remote addr fallback", "", "", "192.0.2.9:5678", "192.0.2.9"},
	}

	for _, c := range cases {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = c.remoteAddr
		if c.realIP != "" {
			r.Header.Set("X-Real-IP", c.realIP)
		}
		if c.forwarded != "" {
			r.Header.Set("X-Forwarded-For", c.forwarded)
		}
		if got := RealIP(r); got != c.want {
			t.Fatalf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestIPAllowed(t *testing.T) {
	cases := []struct {
		name    string
		ip      string
		allowed []string
		want    bool
		wantErr bool
	}{
		{"empty allowlist passes", "203.0.113.7", nil, true, false},
		{"exact match", "203.0.113.7", []string{"203.0.113.7"}, true, false},
		{"cidr match", "10.1.2.3", []string{"10.0.0.0/8"}, true, false},
		{"no match", "203.0.113.7", []string{"198.51.100.0/24", "192.0.2.1"}, false, false},
		{"bad client ip", "not-an-ip", []string{"203.0.113.7"}, false, true},
		{"bad cidr entry", "203.0.113.7", []string{"10.0.0.0/99"}, false, true},
	}

	for _, c := range cases {
		got, err := IPAllowed(c.ip, c.allowed)
		if (err != nil) != c.wantErr {
			t.Fatalf("%s: err=%v, wantErr=%v", c.name, err, c.wantErr)
		}
		if got != c.want {
			t.Fatalf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestIsPrivateAddress(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1":   true,
		"10.20.30.40": true,
		"192.168.1.1": true,
		"8.8.8.8":     false,
		"203.0.113.7": false,
	} {
		got, err := IsPrivateAddress(addr)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", addr, err)
		}
		if got != want {
			t.Fatalf("%s: got %v, want %v", addr, got, want)
		}
	}

	if _, err := IsPrivateAddress("garbage"); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}
