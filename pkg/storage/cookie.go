package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// CookieMaxAge is how long a persisted cookie lives.
const CookieMaxAge = 365 * 24 * time.Hour

// JarKey is the key the jar's cookies are saved under between processes.
const JarKey = "cookieJar"

// CookieStore keeps values as cookies for the app origin inside a cookie jar.
// Sharing the jar with the gateway client makes the values travel with API requests.
type CookieStore struct {
	jar    http.CookieJar
	origin *url.URL
}

// NewCookieStore binds a jar to the origin the cookies belong to.
func NewCookieStore(jar http.CookieJar, origin string) (*CookieStore, error) {
	if jar == nil {
		return nil, fmt.Errorf("cookie store: nil jar")
	}
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("cookie store: invalid origin %q: %w", origin, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("cookie store: origin %q has no host", origin)
	}
	return &CookieStore{jar: jar, origin: u}, nil
}

// Cookie builds the cookie written for key. The value is URL-encoded.
func Cookie(key, value string) *http.Cookie {
	return &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(CookieMaxAge / time.Second),
		Expires:  time.Now().Add(CookieMaxAge),
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *CookieStore) Name() string { return "cookie" }

func (s *CookieStore) Available() bool { return s != nil && s.jar != nil }

func (s *CookieStore) Get(key string) (string, error) {
	for _, c := range s.jar.Cookies(s.origin) {
		if c.Name != key {
			continue
		}
		v, err := url.QueryUnescape(c.Value)
		if err != nil {
			return "", fmt.Errorf("cookie %s: %w", key, err)
		}
		return v, nil
	}
	return "", ErrNotFound
}

func (s *CookieStore) Set(key, value string) error {
	s.jar.SetCookies(s.origin, []*http.Cookie{Cookie(key, value)})
	return nil
}

func (s *CookieStore) Delete(key string) error {
	s.jar.SetCookies(s.origin, []*http.Cookie{{Name: key, Path: "/", MaxAge: -1}})
	return nil
}

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveTo writes the jar's cookies for the origin to dst so a later process can restore them.
// Values are saved as held in the jar, still URL-encoded.
func (s *CookieStore) SaveTo(dst Store) error {
	cookies := s.jar.Cookies(s.origin)
	if len(cookies) == 0 {
		return dst.Delete(JarKey)
	}
	saved := make([]savedCookie, 0, len(cookies))
	for _, c := range cookies {
		saved = append(saved, savedCookie{Name: c.Name, Value: c.Value})
	}
	b, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("cookie store: save jar: %w", err)
	}
	return dst.Set(JarKey, string(b))
}

// RestoreFrom loads cookies written by SaveTo back into the jar. Nothing saved is not an error.
func (s *CookieStore) RestoreFrom(src Store) error {
	raw, err := src.Get(JarKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var saved []savedCookie
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return fmt.Errorf("cookie store: restore jar: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		ck := Cookie(c.Name, "")
		ck.Value = c.Value
		cookies = append(cookies, ck)
	}
	s.jar.SetCookies(s.origin, cookies)
	return nil
}
