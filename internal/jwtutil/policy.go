package jwtutil

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Policy is the set of claim expectations a validator enforces. Expiry is
// always required. Empty issuer or audience sets reject every token.
type Policy struct {
	issuers   map[string]struct{}
	audiences map[string]struct{}
	leeway    time.Duration
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithLeeway tolerates clock skew when checking exp, nbf and iat.
func WithLeeway(d time.Duration) PolicyOption {
	return func(p *Policy) {
		if d > 0 {
			p.leeway = d
		}
	}
}

// NewPolicy builds a Policy. Entries are trimmed; blanks and duplicates are dropped.
func NewPolicy(issuers, audiences []string, opts ...PolicyOption) Policy {
	p := Policy{
		issuers:   toSet(issuers),
		audiences: toSet(audiences),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func toSet(values []string) map[string]struct{} {
	cleaned := lo.Uniq(lo.Compact(lo.Map(values, func(v string, _ int) string {
		return strings.TrimSpace(v)
	})))
	return lo.SliceToMap(cleaned, func(v string) (string, struct{}) {
		return v, struct{}{}
	})
}

// Issuers returns the accepted issuers, sorted.
func (p Policy) Issuers() []string {
	return sortedKeys(p.issuers)
}

// Audiences returns the accepted audiences, sorted.
func (p Policy) Audiences() []string {
	return sortedKeys(p.audiences)
}

// Leeway returns the tolerated clock skew.
func (p Policy) Leeway() time.Duration {
	return p.leeway
}

func (p Policy) allowsIssuer(iss string) bool {
	_, ok := p.issuers[iss]
	return ok
}

func (p Policy) allowsAnyAudience(aud []string) bool {
	return lo.ContainsBy(aud, func(a string) bool {
		_, ok := p.audiences[a]
		return ok
	})
}

func sortedKeys(m map[string]struct{}) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
