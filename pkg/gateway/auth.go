package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"workspace-client/pkg/models"
)

// DevLogin signs in against the dev gateway and returns the identity to persist.
func (c *Client) DevLogin(ctx context.Context, username, email string) (*models.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("login: username is required")
	}
	var out models.LoginResponse
	err := c.do(ctx, call{
		op:     "login",
		method: http.MethodPost,
		path:   "/dev/login",
		body:   models.LoginRequest{Username: username, Email: strings.TrimSpace(email)},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Identity, nil
}
