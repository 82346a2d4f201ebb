package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized is returned when a request carries no valid bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the principal lacks a required capability.
	ErrForbidden = errors.New("forbidden")
)

// Capability is one permission checked at the boundary.
type Capability uint16

const (
	CanSubmit Capability = 1 << iota
	CanApprove
	CanReject
	CanAdvance
	CanReorderCatalog
	CanManageCatalog
	CanViewReports
	CanEditAnyManuscript
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CanSubmit, "canSubmit"},
	{CanApprove, "canApprove"},
	{CanReject, "canReject"},
	{CanAdvance, "canAdvance"},
	{CanReorderCatalog, "canReorderCatalog"},
	{CanManageCatalog, "canManageCatalog"},
	{CanViewReports, "canViewReports"},
	{CanEditAnyManuscript, "canEditAnyManuscript"},
}

func (c Capability) String() string {
	for _, n := range capabilityNames {
		if n.cap == c {
			return n.name
		}
	}
	return fmt.Sprintf("capability(%d)", uint16(c))
}

// CapabilitySet is an immutable set of capabilities.
type CapabilitySet uint16

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= CapabilitySet(c)
	}
	return s
}

func (s CapabilitySet) Has(c Capability) bool {
	return uint16(s)&uint16(c) != 0
}

// Names lists the capabilities in declaration order.
func (s CapabilitySet) Names() []string {
	names := make([]string, 0, len(capabilityNames))
	for _, n := range capabilityNames {
		if s.Has(n.cap) {
			names = append(names, n.name)
		}
	}
	return names
}

// Dashboard roles carried in the token.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RolePIC    = "pic"
	RoleAuthor = "penulis"
)

var roleCapabilities = map[string]CapabilitySet{
	RoleAdmin: NewCapabilitySet(CanSubmit, CanApprove, CanReject, CanAdvance, CanReorderCatalog,
		CanManageCatalog, CanViewReports, CanEditAnyManuscript),
	RoleEditor: NewCapabilitySet(CanApprove, CanReject, CanAdvance, CanReorderCatalog, CanViewReports),
	RolePIC:    NewCapabilitySet(CanAdvance, CanViewReports),
	RoleAuthor: NewCapabilitySet(CanSubmit),
}

// CapabilitiesForRoles is the single place roles are turned into permissions.
// Unknown roles grant nothing.
func CapabilitiesForRoles(roles []string) CapabilitySet {
	var set CapabilitySet
	for _, role := range roles {
		set |= roleCapabilities[NormaliseRole(role)]
	}
	return set
}

// NormaliseRole lower-cases and trims a role name as stored in peran.
func NormaliseRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// Require returns ErrForbidden unless p holds c.
func Require(p *Principal, c Capability) error {
	if p == nil {
		return ErrUnauthorized
	}
	if !p.Capabilities.Has(c) {
		return fmt.Errorf("%s is required: %w", c, ErrForbidden)
	}
	return nil
}
