// Package access implements the request-level authorization table: a single
// mapping of (role, route prefix) to capabilities consulted by every protected
// route before any service runs.
package access

import (
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/eventconnect/backend/internal/models"
)

// Capability is a bit set of permissions on a resource.
type Capability uint8

const (
	ReadOwn Capability = 1 << iota
	ReadAny
	WriteOwn
	WriteAny
	AdminOnly
)

// Common capability combinations.
const (
	None Capability = 0
	Own             = ReadOwn | WriteOwn
	Any             = ReadAny | WriteAny
	All             = Any | AdminOnly
)

// Has reports whether c contains every bit of want.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// CanRead reports whether c grants any read access.
func (c Capability) CanRead() bool { return c&(ReadOwn|ReadAny) != 0 }

// CanWrite reports whether c grants any write access.
func (c Capability) CanWrite() bool { return c&(WriteOwn|WriteAny) != 0 }

// Principal is the authenticated caller together with the capabilities the
// gate granted on the requested route.
type Principal struct {
	UserID uuid.UUID
	Role   models.Role
	Grant  Capability
}

// CanWriteAny reports whether the caller may mutate resources it does not own.
func (p Principal) CanWriteAny() bool { return p.Grant.Has(WriteAny) }

// CanReadAny reports whether the caller may read resources it does not own.
func (p Principal) CanReadAny() bool { return p.Grant.Has(ReadAny) }

// Rule grants capabilities per role on a route prefix. Read grants apply to
// GET/HEAD, write grants to every other method.
type Rule struct {
	Prefix    string
	Grants    map[models.Role]Capability
	AdminOnly bool
}

// Decision is the gate's answer for one request.
type Decision struct {
	Allowed bool
	Grant   Capability
	Rule    string
}

// Policy is an immutable table of rules matched by longest segment-aligned prefix.
type Policy struct {
	rules []Rule
}

// NewPolicy builds a policy from rules. Rules are ordered so the most specific
// prefix is tried first.
func NewPolicy(rules ...Rule) *Policy {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &Policy{rules: sorted}
}

// Decide answers whether role may perform method on path. Unmatched paths are denied.
func (p *Policy) Decide(role models.Role, method, path string) Decision {
	rule, ok := p.match(path)
	if !ok {
		return Decision{}
	}
	grant := rule.Grants[role]
	d := Decision{Grant: grant, Rule: rule.Prefix}
	if rule.AdminOnly && !grant.Has(AdminOnly) {
		return d
	}
	if isRead(method) {
		d.Allowed = grant.CanRead()
	} else {
		d.Allowed = grant.CanWrite()
	}
	return d
}

func (p *Policy) match(path string) (Rule, bool) {
	for _, r := range p.rules {
		if hasSegmentPrefix(path, r.Prefix) {
			return r, true
		}
	}
	return Rule{}, false
}

func hasSegmentPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || strings.HasSuffix(prefix, "/") || path[len(prefix)] == '/'
}

func isRead(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// everyone grants c to all roles.
func everyone(c Capability) map[models.Role]Capability {
	return map[models.Role]Capability{
		models.RoleAdmin:       c,
		models.RoleOrganizer:   c,
		models.RoleParticipant: c,
	}
}

// DefaultPolicy is the route table of the HTTP API.
func DefaultPolicy() *Policy {
	return NewPolicy(
		Rule{Prefix: "/admin", AdminOnly: true, Grants: map[models.Role]Capability{
			models.RoleAdmin: All,
		}},
		Rule{Prefix: "/organizer", Grants: map[models.Role]Capability{
			models.RoleAdmin:     Any,
			models.RoleOrganizer: Own,
		}},
		Rule{Prefix: "/participant", Grants: map[models.Role]Capability{
			models.RoleParticipant: Own,
		}},
		Rule{Prefix: "/workshops", Grants: map[models.Role]Capability{
			models.RoleAdmin:       Any,
			models.RoleOrganizer:   ReadAny | WriteOwn,
			models.RoleParticipant: ReadAny,
		}},
		Rule{Prefix: "/workshops/:id/register", Grants: map[models.Role]Capability{
			models.RoleParticipant: WriteOwn,
		}},
		Rule{Prefix: "/workshops/:id/unregister", Grants: map[models.Role]Capability{
			models.RoleParticipant: WriteOwn,
		}},
		Rule{Prefix: "/attendance", Grants: map[models.Role]Capability{
			models.RoleAdmin:     Any,
			models.RoleOrganizer: Own,
		}},
		Rule{Prefix: "/attendance/scan", Grants: map[models.Role]Capability{
			models.RoleParticipant: WriteOwn,
		}},
		Rule{Prefix: "/attendance/me", Grants: everyone(ReadOwn)},
		Rule{Prefix: "/attendance/workshop", Grants: map[models.Role]Capability{
			models.RoleAdmin:     ReadAny,
			models.RoleOrganizer: ReadOwn,
		}},
		Rule{Prefix: "/notifications", Grants: map[models.Role]Capability{
			models.RoleAdmin:       Any,
			models.RoleOrganizer:   Any,
			models.RoleParticipant: ReadAny,
		}},
		Rule{Prefix: "/notifications/:id/read", Grants: everyone(WriteAny)},
		Rule{Prefix: "/users", AdminOnly: true, Grants: map[models.Role]Capability{
			models.RoleAdmin: All,
		}},
		Rule{Prefix: "/users/me", Grants: everyone(Own)},
		Rule{Prefix: "/leaderboard", Grants: everyone(ReadAny)},
		Rule{Prefix: "/activities", Grants: map[models.Role]Capability{
			models.RoleAdmin:       Any,
			models.RoleOrganizer:   ReadAny,
			models.RoleParticipant: ReadAny,
		}},
		Rule{Prefix: "/exports", Grants: map[models.Role]Capability{
			models.RoleAdmin:     Any,
			models.RoleOrganizer: Own,
		}},
	)
}
