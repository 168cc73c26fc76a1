package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"workspace-client/pkg/database"
	"workspace-client/pkg/models"
	"workspace-client/pkg/utils"
)

// InvitesHandler serves org and layer invites. Both scopes share one lifecycle.
type InvitesHandler struct {
	db  database.DatabaseInterface
	log *zap.SugaredLogger
	now func() time.Time
}

func NewInvitesHandler(db database.DatabaseInterface, log *zap.SugaredLogger) *InvitesHandler {
	return &InvitesHandler{db: db, log: log, now: time.Now}
}

// scopeParam is the URL parameter naming the invite target.
func scopeParam(scope models.InviteScope) string {
	if scope == models.ScopeLayer {
		return "layerId"
	}
	return "orgId"
}

// owningOrg resolves the organization that governs permissions for a target.
func (h *InvitesHandler) owningOrg(scope models.InviteScope, targetID int64) (int64, string, error) {
	if scope == models.ScopeLayer {
		layer, err := h.db.GetLayer(targetID)
		if err != nil {
			return 0, "", err
		}
		return layer.OrganizationID, layer.Name, nil
	}
	org, err := h.db.GetOrganization(targetID)
	if err != nil {
		return 0, "", err
	}
	return org.ID, org.Name, nil
}

func expiryHours(raw int) int {
	if raw <= 0 {
		return models.DefaultInviteHours
	}
	return raw
}

// CreateInvite POST /api/{orgs|layers}/{id}/invites?inviterId=
func (h *InvitesHandler) CreateInvite(scope models.InviteScope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := authUser(w, r)
		if !ok {
			return
		}
		targetID, ok := pathID(w, r, scopeParam(scope))
		if !ok {
			return
		}
		if !queryActor(w, r, "inviterId", user) {
			return
		}

		var req models.CreateInviteRequest
		if err := utils.ParseJSONBody(r, &req); err != nil {
			utils.WriteBadRequestResponse(w, "Invalid request body")
			return
		}
		addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
		if err != nil || addr.Name != "" {
			utils.WriteBadRequestResponse(w, "Invalid email")
			return
		}

		orgID, _, err := h.owningOrg(scope, targetID)
		if err != nil {
			utils.WriteNotFoundResponse(w, "Invite target not found")
			return
		}
		if !requireOrgManager(w, h.db, user.ID, orgID) {
			return
		}

		inv := &models.Invite{
			Scope:     scope,
			TargetID:  targetID,
			Email:     strings.ToLower(addr.Address),
			Status:    models.InvitePending,
			InviterID: user.ID,
			Token:     utils.NewInviteToken(),
			ExpiresAt: h.now().UTC().Add(time.Duration(expiryHours(req.ExpiresInHours)) * time.Hour),
			CreatedAt: h.now().UTC(),
		}
		if err := h.db.CreateInvitation(inv); err != nil {
			if errors.Is(err, database.ErrConflict) {
				utils.WriteConflictResponse(w, "Email already invited")
				return
			}
			h.log.Errorw("create invite failed", "scope", scope, "target_id", targetID, "error", err)
			utils.WriteInternalServerErrorResponse(w, "Failed to create invite")
			return
		}

		h.log.Infow("invite created", "invite_id", inv.ID, "scope", scope, "target_id", targetID, "email", inv.Email)
		utils.WriteCreatedResponse(w, inv)
	}
}

// ListInvites GET /api/{orgs|layers}/{id}/invites
// Tokens are only shown to owners and admins.
func (h *InvitesHandler) ListInvites(scope models.InviteScope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := authUser(w, r)
		if !ok {
			return
		}
		targetID, ok := pathID(w, r, scopeParam(scope))
		if !ok {
			return
		}
		orgID, _, err := h.owningOrg(scope, targetID)
		if err != nil {
			utils.WriteNotFoundResponse(w, "Invite target not found")
			return
		}
		role, ok := requireOrgMember(w, h.db, user.ID, orgID)
		if !ok {
			return
		}

		invites, err := h.db.ListInvitations(scope, targetID)
		if err != nil {
			utils.WriteInternalServerErrorResponse(w, "Failed to list invites")
			return
		}
		if role == models.RoleMember {
			for i := range invites {
				invites[i].Token = ""
			}
		}
		utils.WriteSuccessResponse(w, invites)
	}
}

// Preview GET /api/invites/preview?token=
func (h *InvitesHandler) Preview(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		utils.WriteBadRequestResponse(w, "token is required")
		return
	}
	inv, err := h.db.GetInvitationByToken(token)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Invite not found")
		return
	}
	_, name, err := h.owningOrg(inv.Scope, inv.TargetID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Invite target not found")
		return
	}
	utils.WriteSuccessResponse(w, models.InvitePreview{
		Scope:      inv.Scope,
		TargetID:   inv.TargetID,
		TargetName: name,
		Email:      inv.Email,
		Status:     inv.Status,
		ExpiresAt:  inv.ExpiresAt,
	})
}

// Accept POST /api/invites/accept?acceptorId=
func (h *InvitesHandler) Accept(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}
	if !queryActor(w, r, "acceptorId", user) {
		return
	}

	var req models.AcceptInviteRequest
	if err := utils.ParseJSONBody(r, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		utils.WriteBadRequestResponse(w, "token is required")
		return
	}
	inv, err := h.db.GetInvitationByToken(strings.TrimSpace(req.Token))
	if err != nil {
		utils.WriteNotFoundResponse(w, "Invite not found")
		return
	}
	if inv.Status != models.InvitePending {
		utils.WriteConflictResponse(w, "Invite is already "+string(inv.Status))
		return
	}
	if !h.now().Before(inv.ExpiresAt) {
		utils.WriteErrorResponseWithCode(w, http.StatusGone, "GONE", "Invite has expired", "")
		return
	}

	orgID, _, err := h.owningOrg(inv.Scope, inv.TargetID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Invite target not found")
		return
	}
	if err := h.db.AddOrganizationMember(orgID, user.ID, models.RoleMember); err != nil {
		h.log.Errorw("accept: add member failed", "org_id", orgID, "user_id", user.ID, "error", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to accept invite")
		return
	}
	if inv.Scope == models.ScopeLayer {
		if err := h.db.AddLayerMember(inv.TargetID, user.ID); err != nil {
			utils.WriteInternalServerErrorResponse(w, "Failed to accept invite")
			return
		}
	}

	inv.Status = models.InviteAccepted
	if err := h.db.UpdateInvitation(inv); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to accept invite")
		return
	}
	h.log.Infow("invite accepted", "invite_id", inv.ID, "user_id", user.ID)
	utils.WriteSuccessResponse(w, models.AcceptInviteResponse{Scope: inv.Scope, TargetID: inv.TargetID})
}

// loadManagedInvite loads the {id} invite and checks the requester may act on it.
func (h *InvitesHandler) loadManagedInvite(w http.ResponseWriter, r *http.Request) (*models.Invite, bool) {
	user, ok := authUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	if !queryActor(w, r, "requesterId", user) {
		return nil, false
	}
	inv, err := h.db.GetInvitation(id)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Invite not found")
		return nil, false
	}
	orgID, _, err := h.owningOrg(inv.Scope, inv.TargetID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Invite target not found")
		return nil, false
	}
	if inv.InviterID != user.ID && !requireOrgManager(w, h.db, user.ID, orgID) {
		return nil, false
	}
	if inv.IsTerminal() {
		utils.WriteConflictResponse(w, "Invite is already "+string(inv.Status))
		return nil, false
	}
	return inv, true
}

// Resend POST /api/invites/{id}/resend?requesterId=&hours=
func (h *InvitesHandler) Resend(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadManagedInvite(w, r)
	if !ok {
		return
	}
	hours, _ := strconv.Atoi(r.URL.Query().Get("hours"))
	inv.ExpiresAt = h.now().UTC().Add(time.Duration(expiryHours(hours)) * time.Hour)
	if err := h.db.UpdateInvitation(inv); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to resend invite")
		return
	}
	h.log.Infow("invite resent", "invite_id", inv.ID, "email", inv.Email, "expires_at", inv.ExpiresAt)
	utils.WriteSuccessResponse(w, inv)
}

// Revoke POST /api/invites/{id}/revoke?requesterId=
func (h *InvitesHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadManagedInvite(w, r)
	if !ok {
		return
	}
	inv.Status = models.InviteRevoked
	if err := h.db.UpdateInvitation(inv); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to revoke invite")
		return
	}
	h.log.Infow("invite revoked", "invite_id", inv.ID)
	utils.WriteSuccessResponse(w, inv)
}
