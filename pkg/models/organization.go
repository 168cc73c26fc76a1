package models

import "strings"

// Organization represents a collaborative workspace (tenant)
type Organization struct {
	ID             int64      `json:"id"`
	Slug           string     `json:"slug"`
	Name           string     `json:"name"`
	JoinPolicy     JoinPolicy `json:"joinPolicy,omitempty"`
	AllowedDomains []string   `json:"allowedDomains,omitempty"`
}

// JoinPolicy governs how new members may join an organization
type JoinPolicy string

const (
	JoinPolicyInvite JoinPolicy = "invite"
	JoinPolicyDomain JoinPolicy = "domain"
)

// Valid reports whether p is a known policy. The empty policy is treated as invite.
func (p JoinPolicy) Valid() bool {
	switch p {
	case "", JoinPolicyInvite, JoinPolicyDomain:
		return true
	}
	return false
}

// OrDefault returns invite for the empty policy.
func (p JoinPolicy) OrDefault() JoinPolicy {
	if p == "" {
		return JoinPolicyInvite
	}
	return p
}

type OrgMemberRole string

const (
	RoleOwner  OrgMemberRole = "owner"
	RoleAdmin  OrgMemberRole = "admin"
	RoleMember OrgMemberRole = "member"
)

// Membership relates the current user to exactly one organization
type Membership struct {
	Organization Organization `json:"organization"`
	Role         string       `json:"role"`
}

// Member is a user listed by an organization member search
type Member struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// CreateOrganizationRequest is the body of POST /orgs
type CreateOrganizationRequest struct {
	Name           string     `json:"name"`
	Slug           string     `json:"slug"`
	JoinPolicy     JoinPolicy `json:"joinPolicy,omitempty"`
	AllowedDomains []string   `json:"allowedDomains,omitempty"`
}

// EmailDomain returns the lowercased domain part of an address, or "" if there is none.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}
