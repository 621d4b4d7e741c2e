package bridge

import "strings"

// Allowlist is the fixed set of partner origins, compared exactly.
type Allowlist struct {
	origins []string
	set     map[string]struct{}
}

// NewAllowlist builds an allowlist. A trailing slash is ignored and
// duplicates collapse; order is kept for announcements.
func NewAllowlist(origins ...string) *Allowlist {
	a := &Allowlist{set: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = normalizeOrigin(o)
		if o == "" || o == TargetAny {
			continue
		}
		if _, dup := a.set[o]; dup {
			continue
		}
		a.set[o] = struct{}{}
		a.origins = append(a.origins, o)
	}
	return a
}

// Allowed reports whether origin is a partner.
func (a *Allowlist) Allowed(origin string) bool {
	_, ok := a.set[normalizeOrigin(origin)]
	return ok
}

// Origins returns the partners in configuration order.
func (a *Allowlist) Origins() []string {
	return append([]string(nil), a.origins...)
}

func normalizeOrigin(o string) string {
	return strings.TrimRight(strings.TrimSpace(o), "/")
}
