package security

import (
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync/atomic"

	"smartspend/internal/log"
)

// DetectionMetrics counts what the Detector has seen since start.
type DetectionMetrics struct {
	SuspiciousRequests int64 `json:"suspicious_requests"`
	InvalidIPAttempts  int64 `json:"invalid_ip_attempts"`
}

// Rule flags one kind of hostile-looking request.
type Rule struct {
	Name  string
	Match func(r *http.Request) bool
}

var (
	probeFragments = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "wp-login",
		"phpmyadmin", "admin.php", "config.php", "etc/passwd", "cmd.exe",
		"<script", "javascript:", "eval(", "union select",
	}
	scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab"}
	oddMethods    = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}
)

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// DefaultRules covers path and query probes, known scanners, unusual
// methods, oversized URLs and long proxy chains.
func DefaultRules() []Rule {
	return []Rule{
		{"probe_path", func(r *http.Request) bool {
			return containsAny(strings.ToLower(r.URL.Path), probeFragments)
		}},
		{"probe_query", func(r *http.Request) bool {
			q, err := url.QueryUnescape(r.URL.RawQuery)
			if err != nil {
				q = r.URL.RawQuery
			}
			return containsAny(strings.ToLower(q), probeFragments)
		}},
		{"scanner_agent", func(r *http.Request) bool {
			return containsAny(strings.ToLower(r.UserAgent()), scannerAgents)
		}},
		{"odd_method", func(r *http.Request) bool { return oddMethods[r.Method] }},
		{"long_url", func(r *http.Request) bool { return len(r.URL.String()) > 2048 }},
		{"proxy_chain", func(r *http.Request) bool {
			return strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5
		}},
	}
}

// Detector flags suspicious requests and resolves client addresses. It
// only logs; requests are never blocked.
type Detector struct {
	rules      []Rule
	trusted    []netip.Prefix
	suspicious atomic.Int64
	invalidIP  atomic.Int64
	logger     *log.Logger
}

// NewDetector trusts loopback and private networks as reverse proxies.
func NewDetector(logger *log.Logger) *Detector {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Detector{
		rules: DefaultRules(),
		trusted: []netip.Prefix{
			netip.MustParsePrefix("127.0.0.0/8"),
			netip.MustParsePrefix("::1/128"),
			netip.MustParsePrefix("10.0.0.0/8"),
			netip.MustParsePrefix("172.16.0.0/12"),
			netip.MustParsePrefix("192.168.0.0/16"),
		},
		logger: logger.WithComponent(log.ComponentSecurity),
	}
}

// AddTrustedProxy trusts forwarding headers set by peers inside cidr.
// Call it before the detector serves requests.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return fmt.Errorf("invalid trusted proxy CIDR %q: %w", cidr, err)
	}
	d.trusted = append(d.trusted, p.Masked())
	return nil
}

// Inspect returns the name of the first rule r trips.
func (d *Detector) Inspect(r *http.Request) (string, bool) {
	for _, rule := range d.rules {
		if rule.Match(r) {
			d.suspicious.Add(1)
			return rule.Name, true
		}
	}
	return "", false
}

func (d *Detector) isTrusted(a netip.Addr) bool {
	a = a.Unmap()
	for _, p := range d.trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the peer address, or when the peer is a trusted
// proxy, the nearest untrusted hop in X-Forwarded-For (then X-Real-IP).
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, err := netip.ParseAddrPort(r.RemoteAddr)
	var addr netip.Addr
	if err == nil {
		addr = peer.Addr()
	} else if addr, err = netip.ParseAddr(r.RemoteAddr); err != nil {
		d.invalidIP.Add(1)
		return r.RemoteAddr
	}
	if !d.isTrusted(addr) {
		return addr.Unmap().String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				d.invalidIP.Add(1)
				break
			}
			if !d.isTrusted(hop) || i == 0 {
				return hop.Unmap().String()
			}
		}
	}
	if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xri.Unmap().String()
	}
	return addr.Unmap().String()
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIP.Load(),
	}
}

// Middleware logs suspicious requests and passes every request through.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rule, ok := d.Inspect(r); ok {
			d.logger.WarnContext(r.Context(), "Suspicious request",
				"rule", rule,
				log.FieldClientIP, d.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}
