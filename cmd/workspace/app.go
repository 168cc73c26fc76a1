package main

import (
	"errors"
	"fmt"
	"io"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"workspace-client/pkg/config"
	"workspace-client/pkg/gateway"
	"workspace-client/pkg/logger"
	"workspace-client/pkg/membership"
	"workspace-client/pkg/models"
	"workspace-client/pkg/session"
	"workspace-client/pkg/storage"
)

var (
	errNotSignedIn = errors.New("not signed in: run `workspace login <username>` first")
	errNoActor     = errors.New("signed-in identity has no user id: run `workspace login <username>` again")
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	apiURL  string
	dataDir string
	debug   bool
	json    bool
}

// app is everything a command needs, built once per invocation.
type app struct {
	cfg        *config.Config
	log        *zap.SugaredLogger
	store      storage.Store
	files      *storage.FileStore
	cookies    *storage.CookieStore
	pg         *storage.PostgresStore
	session    *session.Session
	client     *gateway.Client
	categories *storage.CategoryStore
	out        io.Writer
	json       bool
}

func newApp(opts *rootOptions, out io.Writer) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.debug {
		cfg.Debug = true
		cfg.LogLevel = "DEBUG"
	}
	cfg.APIBaseURL = cfg.ResolveAPIBaseURL(opts.apiURL)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Conf{Level: cfg.LogLevel, Output: "stderr"})
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	cookies, err := storage.NewCookieStore(jar, cookieOrigin(cfg))
	if err != nil {
		return nil, err
	}
	files, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	if err := cookies.RestoreFrom(files); err != nil {
		log.Warnw("saved cookies unreadable, starting with an empty jar", "error", err)
	}

	a := &app{cfg: cfg, log: log, out: out, json: opts.json, files: files, cookies: cookies}
	// the bearer-token identity and the active organization live in local stores only
	a.store = storage.Chain(files, cookies)
	a.session = session.New(a.store)

	if cfg.PostgresDSN != "" {
		pg, err := storage.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			log.Warnw("postgres storage unavailable, continuing with local storage", "error", err)
		} else if err := pg.EnsureSchema(); err != nil {
			log.Warnw("postgres schema setup failed, continuing with local storage", "error", err)
			_ = pg.Close()
		} else {
			a.pg = pg
		}
	}
	prefs := preferenceStore(a.pg, preferenceOwner(cfg.APIBaseURL, a.session.Username()), files, cookies)
	log.Debugw("storage ready", "session", a.store.Name(), "preferences", prefs.Name(), "data_dir", files.Dir())
	a.categories = storage.NewCategoryStore(prefs)
	a.client = gateway.New(cfg.APIBaseURL, a.session,
		gateway.WithLogger(log),
		gateway.WithTimeout(cfg.HTTPTimeout),
		gateway.WithCookieJar(jar),
	)
	return a, nil
}

func (a *app) close() {
	if err := a.cookies.SaveTo(a.files); err != nil {
		a.log.Warnw("saving cookies failed", "error", err)
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
	_ = a.log.Sync()
}

// preferenceStore puts the shared Postgres table in front of the local stores
// once there is an owner to scope its rows to.
func preferenceStore(pg *storage.PostgresStore, owner string, local ...storage.Store) storage.Store {
	if pg == nil || owner == "" {
		return storage.Chain(local...)
	}
	return storage.Chain(append([]storage.Store{pg.Owner(owner)}, local...)...)
}

// preferenceOwner names the rows of one user on one gateway, or "" when nobody is signed in.
func preferenceOwner(apiURL, username string) string {
	if username == "" {
		return ""
	}
	return username + "@" + apiURL
}

// cookieOrigin is COOKIE_ORIGIN, or the scheme and host of the gateway.
func cookieOrigin(cfg *config.Config) string {
	if cfg.CookieOrigin != "" {
		return cfg.CookieOrigin
	}
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || u.Host == "" {
		return "http://localhost"
	}
	return u.Scheme + "://" + u.Host
}

// requireIdentity returns the signed-in identity or errNotSignedIn.
func (a *app) requireIdentity() (*models.Identity, error) {
	id := a.session.Identity()
	if id == nil || id.Username == "" {
		return nil, errNotSignedIn
	}
	return id, nil
}

// activeOrgID returns explicit when set, else the selected organization.
func (a *app) activeOrgID(explicit int64) (int64, error) {
	if explicit > 0 {
		return explicit, nil
	}
	if org := a.session.ActiveOrganization(); org != nil {
		return org.ID, nil
	}
	return 0, errors.New("no organization selected: run `workspace orgs select <id|slug>` or pass --org")
}

func (a *app) newFlow() *membership.Flow {
	return membership.NewFlow(a.session, a.client.Organizations, &cliNavigator{out: a.out, log: a.log}, membership.WithLogger(a.log))
}

// cliNavigator reports navigation instead of performing it.
type cliNavigator struct {
	out io.Writer
	log *zap.SugaredLogger
}

func (n *cliNavigator) RedirectToLogin() {
	n.log.Debugw("login required")
}

func (n *cliNavigator) OpenWorkspace(org models.Organization) {
	fmt.Fprintf(n.out, "Switched to %s (%s)\n", org.Name, org.Slug)
}

// userError turns gateway failures into the message the server gave.
func userError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var gerr *gateway.Error
	if errors.As(err, &gerr) {
		return errors.New(gateway.MessageOf(err, fallback))
	}
	return err
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}
