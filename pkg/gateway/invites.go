package gateway

import (
	"context"
	"net/http"
	"strconv"

	"workspace-client/pkg/models"
)

// InvitesService manages organization and layer invites. The scope picks the resource path.
type InvitesService struct {
	c *Client
}

// Preview shows what an invite token grants. No sign-in is needed.
func (s *InvitesService) Preview(ctx context.Context, token string) (*models.InvitePreview, error) {
	var out models.InvitePreview
	err := s.c.do(ctx, call{
		op:     "preview invite",
		method: http.MethodGet,
		path:   "/invites/preview",
		query:  map[string]string{"token": token},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Accept redeems token for the signed-in user.
func (s *InvitesService) Accept(ctx context.Context, token string) (*models.AcceptInviteResponse, error) {
	acceptorID, ok := s.actor()
	if !ok {
		return nil, ErrIdentityRequired
	}
	var out models.AcceptInviteResponse
	err := s.c.do(ctx, call{
		op:     "accept invite",
		method: http.MethodPost,
		path:   "/invites/accept",
		query:  map[string]string{"acceptorId": itoa(acceptorID)},
		body:   models.AcceptInviteRequest{Token: token},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Create invites email to the org or layer targetID. expiresInHours <= 0 means 168.
func (s *InvitesService) Create(ctx context.Context, scope models.InviteScope, targetID, inviterID int64, email string, expiresInHours int) (*models.Invite, error) {
	if expiresInHours <= 0 {
		expiresInHours = models.DefaultInviteHours
	}
	var out models.Invite
	err := s.c.do(ctx, call{
		op:     "create invite",
		method: http.MethodPost,
		path:   "/" + scope.Collection() + "/{id}/invites",
		params: map[string]string{"id": itoa(targetID)},
		query:  map[string]string{"inviterId": itoa(inviterID)},
		body:   models.CreateInviteRequest{Email: email, ExpiresInHours: expiresInHours},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *InvitesService) List(ctx context.Context, scope models.InviteScope, targetID int64) ([]models.Invite, error) {
	var out []models.Invite
	err := s.c.do(ctx, call{
		op:     "list invites",
		method: http.MethodGet,
		path:   "/" + scope.Collection() + "/{id}/invites",
		params: map[string]string{"id": itoa(targetID)},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Invite{}
	}
	return out, nil
}

// Resend re-delivers a pending invite and extends its expiry. hours <= 0 means 168.
func (s *InvitesService) Resend(ctx context.Context, inviteID, requesterID int64, hours int) error {
	if hours <= 0 {
		hours = models.DefaultInviteHours
	}
	return s.c.do(ctx, call{
		op:     "resend invite",
		method: http.MethodPost,
		path:   "/invites/{id}/resend",
		params: map[string]string{"id": itoa(inviteID)},
		query: map[string]string{
			"requesterId": itoa(requesterID),
			"hours":       strconv.Itoa(hours),
		},
	}, nil)
}

func (s *InvitesService) Revoke(ctx context.Context, inviteID, requesterID int64) error {
	return s.c.do(ctx, call{
		op:     "revoke invite",
		method: http.MethodPost,
		path:   "/invites/{id}/revoke",
		params: map[string]string{"id": itoa(inviteID)},
		query:  map[string]string{"requesterId": itoa(requesterID)},
	}, nil)
}

func (s *InvitesService) actor() (int64, bool) {
	if s.c.creds == nil {
		return 0, false
	}
	return s.c.creds.ActorID()
}
