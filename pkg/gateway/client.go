// Package gateway is the HTTP client of the workspace API.
// Every request is decorated with the caller's bearer token and active organization.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"workspace-client/pkg/config"
	"workspace-client/pkg/logger"
)

const (
	HeaderOrgID     = "X-Org-Id"
	HeaderRequestID = "X-Request-Id"
)

// Credentials supplies per-request auth context. session.Session implements it.
// Empty values mean the corresponding header is left out.
type Credentials interface {
	Token() string
	ActiveOrgID() string
	ActorID() (int64, bool)
}

// Client dispatches gateway requests
type Client struct {
	rc    *resty.Client
	creds Credentials
	log   *zap.SugaredLogger

	Organizations *OrganizationsService
	Invites       *InvitesService
}

type Option func(*options)

type options struct {
	log        *zap.SugaredLogger
	timeout    time.Duration
	jar        http.CookieJar
	httpClient *http.Client
}

// WithLogger logs each request at debug level and failures at warn level.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.log = l }
}

// WithTimeout bounds each request. Zero keeps the default of no client-side timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithCookieJar sends the jar's cookies with every request.
func WithCookieJar(jar http.CookieJar) Option {
	return func(o *options) { o.jar = jar }
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New creates a client for baseURL. An empty baseURL means config.DefaultAPIBaseURL.
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = config.DefaultAPIBaseURL
	}

	var rc *resty.Client
	if o.httpClient != nil {
		rc = resty.NewWithClient(o.httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(base).
		SetHeader("Accept", "application/json").
		SetLogger(o.log)
	if o.timeout > 0 {
		rc.SetTimeout(o.timeout)
	}
	if o.jar != nil {
		rc.SetCookieJar(o.jar)
	}

	c := &Client{rc: rc, creds: creds, log: o.log}
	rc.OnBeforeRequest(c.decorate)
	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		c.log.Debugw("gateway request",
			"method", resp.Request.Method,
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"duration", resp.Time())
		return nil
	})

	c.Organizations = &OrganizationsService{c: c}
	c.Invites = &InvitesService{c: c}
	return c
}

// BaseURL is the resolved gateway address.
func (c *Client) BaseURL() string { return c.rc.BaseURL }

// decorate attaches the bearer token and active organization when they exist.
func (c *Client) decorate(_ *resty.Client, req *resty.Request) error {
	req.SetHeader(HeaderRequestID, uuid.NewString())
	if c.creds == nil {
		return nil
	}
	if token := c.creds.Token(); token != "" {
		req.SetAuthToken(token)
	}
	if orgID := c.creds.ActiveOrgID(); orgID != "" {
		req.SetHeader(HeaderOrgID, orgID)
	}
	return nil
}

// call describes one gateway request.
type call struct {
	op     string
	method string
	path   string
	params map[string]string
	query  map[string]string
	body   any
}

// do sends the request and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, rq call, out any) error {
	req := c.rc.R().SetContext(ctx)
	if len(rq.params) > 0 {
		req.SetPathParams(rq.params)
	}
	if len(rq.query) > 0 {
		req.SetQueryParams(rq.query)
	}
	if rq.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(rq.body)
	}

	resp, err := req.Execute(rq.method, rq.path)
	if err != nil {
		c.log.Warnw("gateway request failed", "op", rq.op, "error", err)
		return &Error{Kind: KindNetwork, Op: rq.op, Err: err}
	}
	if !resp.IsSuccess() {
		gerr := &Error{
			Kind:    KindServer,
			Op:      rq.op,
			Status:  resp.StatusCode(),
			Message: errorMessage(resp.Body()),
		}
		c.log.Warnw("gateway request rejected", "op", rq.op, "status", gerr.Status, "message", gerr.Message)
		return gerr
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s: decode response: %w", rq.op, err)
	}
	return nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
