package helpers

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"eventhub/internal/domain"
)

// TimestampLayout is the textual date-time format accepted and produced by query parameters.
const TimestampLayout = "2006-01-02 15:04:05"

// ParseTimestamp parses s in TimestampLayout (UTC). A fractional second is accepted.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a %s timestamp", domain.ErrValidation, s, "yyyy-MM-dd HH:mm:ss")
	}
	return t, nil
}

// QueryTime returns the named query parameter as a timestamp, or nil when absent.
func QueryTime(r *http.Request, name string) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &t, nil
}

// QueryBool returns the named query parameter as a bool, or nil when absent.
func QueryBool(r *http.Request, name string) (*bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false", domain.ErrValidation, name)
	}
	return &b, nil
}

// QueryList returns every value of the named parameter. Values may be repeated
// (?ids=a&ids=b) or comma-separated (?ids=a,b). Empty items are skipped.
func QueryList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// PathUUID returns the named path value when it is a well-formed UUID.
func PathUUID(r *http.Request, name string) (string, error) {
	s := r.PathValue(name)
	if s == "" {
		return "", fmt.Errorf("%w: missing %s", domain.ErrValidation, name)
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("%w: %s must be a UUID", domain.ErrValidation, name)
	}
	return s, nil
}

// IPResolver finds the client address of a request. X-Forwarded-For and X-Real-IP are
// only honoured when the direct peer is a trusted proxy. A nil resolver trusts no proxy.
type IPResolver struct {
	trusted []netip.Prefix
}

// NewIPResolver parses the trusted proxies, given as CIDRs or single addresses.
func NewIPResolver(proxies []string) (*IPResolver, error) {
	res := &IPResolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			addr, err := netip.ParseAddr(p)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
			}
			addr = addr.Unmap()
			res.trusted = append(res.trusted, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(p)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
		}
		res.trusted = append(res.trusted, prefix.Masked())
	}
	return res, nil
}

func (res *IPResolver) isTrusted(addr netip.Addr) bool {
	if res == nil {
		return false
	}
	for _, p := range res.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the client address. Behind trusted proxies it is the right-most
// X-Forwarded-For entry that is not itself a trusted proxy, then X-Real-IP. Malformed
// header values are ignored and the last trusted hop is returned instead.
func (res *IPResolver) ClientIP(r *http.Request) string {
	remote, ok := remoteAddr(r)
	if !ok {
		return RemoteIP(r)
	}
	if !res.isTrusted(remote) {
		return remote.String()
	}

	client := remote
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				return client.String()
			}
			client = addr.Unmap()
			if !res.isTrusted(client) {
				return client.String()
			}
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	return client.String()
}

// RemoteIP returns the host part of RemoteAddr without looking at forwarding headers.
func RemoteIP(r *http.Request) string {
	if addr, ok := remoteAddr(r); ok {
		return addr.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.Trim(r.RemoteAddr, "[]")
	}
	return host
}

func remoteAddr(r *http.Request) (netip.Addr, bool) {
	ap, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		return netip.Addr{}, false
	}
	return ap.Addr().Unmap(), true
}
