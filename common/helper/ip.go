package helper

import (
	"net"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Header may return multiple IP addresses in the format: "client IP, proxy 1 IP, proxy 2 IP", so we take the first one.
var xRealIPHeader = http.CanonicalHeaderKey("X-Real-IP")
var xForwardedForHeader = http.CanonicalHeaderKey("X-Forwarded-For")

var privateCidrs []*net.IPNet

func init() {
	maxCidrBlocks := []string{
		"127.0.0.1/8",    // localhost
		"10.0.0.0/8",     // 24-bit block
		"172.16.0.0/12",  // 20-bit block
		"192.168.0.0/16", // 16-bit block
		"169.254.0.0/16", // link local address
		"::1/128",        // localhost IPv6
		"fc00::/7",       // unique local address IPv6
		"fe80::/10",      // link local address IPv6
	}

	privateCidrs = make([]*net.IPNet, len(maxCidrBlocks))
	for i, maxCidrBlock := range maxCidrBlocks {
		_, cidr, _ := net.ParseCIDR(maxCidrBlock)
		privateCidrs[i] = cidr
	}
}

// IsPrivateAddress works by checking if the address is under private CIDR blocks.
func IsPrivateAddress(address string) (bool, error) {
	ipAddress := net.ParseIP(address)
	if ipAddress == nil {
		return false, errors.New("address is not valid")
	}

	for i := range privateCidrs {
		if privateCidrs[i].Contains(ipAddress) {
			return true, nil
		}
	}

	return false, nil
}

// RealIP returns the client ip, preferring proxy headers over RemoteAddr.
func RealIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get(xRealIPHeader)); ip != "" {
		return ip
	}

	if xff := r.Header.Get(xForwardedForHeader); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IPAllowed reports whether clientIP matches the allowlist.
// Entries may be plain addresses or CIDR blocks.
func IPAllowed(clientIP string, allowed []string) (bool, error) {
	if len(allowed) == 0 {
		return true, nil
	}

	ip := net.ParseIP(clientIP)
	if ip == nil {
		return false, errors.New("wrong ipAddr format")
	}

	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, cidr, err := net.ParseCIDR(entry)
			if err != nil {
				return false, errors.WithStack(err)
			}
			if cidr.Contains(ip) {
				return true, nil
			}
			continue
		}
		if entry == clientIP {
			return true, nil
		}
	}

	return false, nil
}
