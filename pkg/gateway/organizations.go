package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"workspace-client/pkg/models"
)

// OrganizationsService covers organization lookup, creation, discovery and membership
type OrganizationsService struct {
	c *Client
}

// ListMemberships returns the user's memberships in server order.
func (s *OrganizationsService) ListMemberships(ctx context.Context, username string) ([]models.Membership, error) {
	var out []models.Membership
	err := s.c.do(ctx, call{
		op:     "list memberships",
		method: http.MethodGet,
		path:   "/organizations/memberships/{username}",
		params: map[string]string{"username": username},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *OrganizationsService) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	var org models.Organization
	err := s.c.do(ctx, call{
		op:     "get organization",
		method: http.MethodGet,
		path:   "/orgs/slug/{slug}",
		params: map[string]string{"slug": slug},
	}, &org)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Create registers a new organization. JoinPolicy and AllowedDomains are optional.
func (s *OrganizationsService) Create(ctx context.Context, req models.CreateOrganizationRequest) (*models.Organization, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(req.Slug)
	if req.Name == "" || req.Slug == "" {
		return nil, fmt.Errorf("create organization: name and slug are required")
	}
	if !req.JoinPolicy.Valid() {
		return nil, fmt.Errorf("create organization: invalid join policy %q", req.JoinPolicy)
	}

	var org models.Organization
	err := s.c.do(ctx, call{
		op:     "create organization",
		method: http.MethodPost,
		path:   "/orgs",
		body:   req,
	}, &org)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Discover lists organizations that admit the email's domain.
func (s *OrganizationsService) Discover(ctx context.Context, email string) ([]models.Organization, error) {
	var out []models.Organization
	err := s.c.do(ctx, call{
		op:     "discover organizations",
		method: http.MethodGet,
		path:   "/orgs/discover",
		query:  map[string]string{"email": email},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *OrganizationsService) Join(ctx context.Context, orgID int64) error {
	return s.c.do(ctx, call{
		op:     "join organization",
		method: http.MethodPost,
		path:   "/orgs/{orgId}/join",
		params: map[string]string{"orgId": itoa(orgID)},
	}, nil)
}

func (s *OrganizationsService) SearchMembers(ctx context.Context, orgID int64, q string) ([]models.Member, error) {
	var out []models.Member
	err := s.c.do(ctx, call{
		op:     "search members",
		method: http.MethodGet,
		path:   "/orgs/{orgId}/members",
		params: map[string]string{"orgId": itoa(orgID)},
		query:  map[string]string{"q": q},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateLayer adds a layer to orgID. Layers receive their own invites.
func (s *OrganizationsService) CreateLayer(ctx context.Context, orgID int64, name string) (*models.Layer, error) {
	name = strings.TrimSpace(name)
	if orgID <= 0 || name == "" {
		return nil, fmt.Errorf("create layer: organization and name are required")
	}
	var layer models.Layer
	err := s.c.do(ctx, call{
		op:     "create layer",
		method: http.MethodPost,
		path:   "/layers",
		body:   models.CreateLayerRequest{OrganizationID: orgID, Name: name},
	}, &layer)
	if err != nil {
		return nil, err
	}
	return &layer, nil
}
