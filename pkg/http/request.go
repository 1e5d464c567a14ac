package http

import (
	"net"
	"net/http"
	"strings"
)

// DefaultIPHeaders is the trusted-proxy header priority used when none is
// configured. The order matters: vendor-specific headers first, then the
// generic ones, then the forwarded-for chain.
var DefaultIPHeaders = []string{
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Real-IP",
	"X-Forwarded-For",
	"Fly-Client-IP",
	"X-Client-IP",
}

// ExtractClientIP resolves the caller's source address from the configured
// header priority list, falling back to the socket address. Returns
// "unknown" when no candidate parses as an IP. For X-Forwarded-For only
// the first hop of the chain is considered.
func ExtractClientIP(r *http.Request, headers []string) string {
	if len(headers) == 0 {
		headers = DefaultIPHeaders
	}

	for _, name := range headers {
		value := r.Header.Get(name)
		if value == "" {
			continue
		}
		if strings.EqualFold(name, "X-Forwarded-For") {
			value = firstForwardedHop(value)
		}
		value = strings.TrimSpace(value)
		if isValidIP(value) {
			return value
		}
	}

	if ip := remoteAddr(r); ip != "" {
		return ip
	}
	return "unknown"
}

// firstForwardedHop returns the first entry of a comma-separated
// X-Forwarded-For chain
func firstForwardedHop(chain string) string {
	if idx := strings.IndexByte(chain, ','); idx >= 0 {
		return chain[:idx]
	}
	return chain
}

// remoteAddr extracts the IP from RemoteAddr, stripping the port if present
func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return ""
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	if isValidIP(r.RemoteAddr) {
		return r.RemoteAddr
	}
	return ""
}

func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
