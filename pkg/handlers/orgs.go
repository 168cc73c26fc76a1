package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"

	chiRoute "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"workspace-client/pkg/config"
	"workspace-client/pkg/database"
	"workspace-client/pkg/middleware"
	"workspace-client/pkg/models"
	"workspace-client/pkg/utils"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type OrgsHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	log    *zap.SugaredLogger
}

func NewOrgsHandler(cfg *config.Config, db database.DatabaseInterface, log *zap.SugaredLogger) *OrgsHandler {
	return &OrgsHandler{config: cfg, db: db, log: log}
}

// ==== helpers: membership/role checks ====

func requireOrgMember(w http.ResponseWriter, db database.DatabaseInterface, userID, orgID int64) (models.OrgMemberRole, bool) {
	role, err := db.GetMemberRole(orgID, userID)
	if err != nil {
		utils.WriteForbiddenResponse(w, "Not a member of organization")
		return "", false
	}
	return role, true
}

func requireOrgManager(w http.ResponseWriter, db database.DatabaseInterface, userID, orgID int64) bool {
	role, ok := requireOrgMember(w, db, userID, orgID)
	if !ok {
		return false
	}
	if role != models.RoleOwner && role != models.RoleAdmin {
		utils.WriteForbiddenResponse(w, "Owner or admin role required")
		return false
	}
	return true
}

// pathID reads a positive integer URL parameter. It writes a 400 and returns false otherwise.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chiRoute.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteBadRequestResponse(w, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// queryActor checks that the id passed in the query names the authenticated user.
func queryActor(w http.ResponseWriter, r *http.Request, name string, user *models.User) bool {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteBadRequestResponse(w, name+" is required")
		return false
	}
	if id != user.ID {
		utils.WriteForbiddenResponse(w, name+" does not match the authenticated user")
		return false
	}
	return true
}

func authUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return nil, false
	}
	return user, true
}

// ListMemberships GET /api/organizations/memberships/{username}
func (h *OrgsHandler) ListMemberships(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}
	if chiRoute.URLParam(r, "username") != user.Username {
		utils.WriteForbiddenResponse(w, "Cannot list memberships of another user")
		return
	}

	memberships, err := h.db.ListMemberships(user.ID)
	if err != nil {
		h.log.Errorw("list memberships failed", "user_id", user.ID, "error", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to list memberships")
		return
	}
	utils.WriteSuccessResponse(w, memberships)
}

// GetBySlug GET /api/orgs/slug/{slug}
func (h *OrgsHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	org, err := h.db.GetOrganizationBySlug(chiRoute.URLParam(r, "slug"))
	if errors.Is(err, database.ErrNotFound) {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to load organization")
		return
	}
	utils.WriteSuccessResponse(w, org)
}

// CreateOrganization POST /api/orgs
func (h *OrgsHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}

	var req models.CreateOrganizationRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if req.Name == "" || req.Slug == "" {
		utils.WriteBadRequestResponse(w, "Name and slug are required")
		return
	}
	if !slugPattern.MatchString(req.Slug) {
		utils.WriteBadRequestResponse(w, "Slug may only contain lowercase letters, digits and single dashes")
		return
	}
	if !req.JoinPolicy.Valid() {
		utils.WriteBadRequestResponse(w, "joinPolicy must be invite or domain")
		return
	}

	domains := make([]string, 0, len(req.AllowedDomains))
	for _, d := range req.AllowedDomains {
		d = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(d), "@")))
		if d != "" && !slices.Contains(domains, d) {
			domains = append(domains, d)
		}
	}
	if req.JoinPolicy == models.JoinPolicyDomain && len(domains) == 0 {
		utils.WriteBadRequestResponse(w, "Domain join policy needs at least one allowed domain")
		return
	}

	org := &models.Organization{
		Slug:           req.Slug,
		Name:           req.Name,
		JoinPolicy:     req.JoinPolicy,
		AllowedDomains: domains,
	}
	if err := h.db.CreateOrganization(org, user.ID); err != nil {
		if errors.Is(err, database.ErrConflict) {
			utils.WriteConflictResponse(w, "Slug already taken")
			return
		}
		h.log.Errorw("create organization failed", "slug", req.Slug, "error", err)
		utils.WriteInternalServerErrorResponse(w, "Create org failed")
		return
	}

	h.log.Infow("organization created", "org_id", org.ID, "slug", org.Slug, "owner", user.ID)
	utils.WriteCreatedResponse(w, org)
}

// Discover GET /api/orgs/discover?email=
func (h *OrgsHandler) Discover(w http.ResponseWriter, r *http.Request) {
	domain := models.EmailDomain(r.URL.Query().Get("email"))
	if domain == "" {
		utils.WriteBadRequestResponse(w, "A valid email is required")
		return
	}
	orgs, err := h.db.ListOrganizationsByDomain(domain)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to discover organizations")
		return
	}
	utils.WriteSuccessResponse(w, orgs)
}

// Join POST /api/orgs/{orgId}/join
// Only organizations with the domain policy admit users whose email domain is allowed.
func (h *OrgsHandler) Join(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}
	orgID, ok := pathID(w, r, "orgId")
	if !ok {
		return
	}

	org, err := h.db.GetOrganization(orgID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}
	if role, err := h.db.GetMemberRole(orgID, user.ID); err == nil {
		utils.WriteSuccessResponse(w, models.Membership{Organization: *org, Role: string(role)})
		return
	}
	if org.JoinPolicy != models.JoinPolicyDomain {
		utils.WriteForbiddenResponse(w, "Organization is invite-only")
		return
	}

	email := user.Email
	if stored, err := h.db.GetUserByID(user.ID); err == nil && stored.Email != "" {
		email = stored.Email
	}
	if !slices.Contains(org.AllowedDomains, models.EmailDomain(email)) {
		utils.WriteForbiddenResponse(w, "Your email domain is not allowed to join this organization")
		return
	}

	if err := h.db.AddOrganizationMember(orgID, user.ID, models.RoleMember); err != nil {
		h.log.Errorw("join failed", "org_id", orgID, "user_id", user.ID, "error", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to join organization")
		return
	}
	h.log.Infow("joined organization", "org_id", orgID, "user_id", user.ID)
	utils.WriteSuccessResponse(w, models.Membership{Organization: *org, Role: string(models.RoleMember)})
}

// SearchMembers GET /api/orgs/{orgId}/members?q=
func (h *OrgsHandler) SearchMembers(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}
	orgID, ok := pathID(w, r, "orgId")
	if !ok {
		return
	}
	if _, ok := requireOrgMember(w, h.db, user.ID, orgID); !ok {
		return
	}

	members, err := h.db.SearchMembers(orgID, strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to search members")
		return
	}
	utils.WriteSuccessResponse(w, members)
}

// CreateLayer POST /api/layers
func (h *OrgsHandler) CreateLayer(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}
	var req models.CreateLayerRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.OrganizationID <= 0 || req.Name == "" {
		utils.WriteBadRequestResponse(w, "orgId and name are required")
		return
	}
	if !requireOrgManager(w, h.db, user.ID, req.OrganizationID) {
		return
	}

	layer := &models.Layer{OrganizationID: req.OrganizationID, Name: req.Name}
	if err := h.db.CreateLayer(layer); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create layer")
		return
	}
	// the creator can see the layer's invites right away
	_ = h.db.AddLayerMember(layer.ID, user.ID)
	utils.WriteCreatedResponse(w, layer)
}
