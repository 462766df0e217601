// Package client is a Go SDK for the VistaVoyage REST API.
//
// A Client keeps one token pair per scope (customer and admin), refreshes an
// expired access token once before giving up, caches GET responses and refuses
// to send a mutation identical to one still in flight.
package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/vistavoyage/voyage/core"
	cachesvc "github.com/vistavoyage/voyage/services/cache"
)

const (
	DefaultTimeout  = 5 * time.Second
	DefaultCacheTTL = 5 * time.Minute

	APIPrefix   = "/api/v1"
	adminPrefix = APIPrefix + "/admin/"
	userPrefix  = APIPrefix + "/user/"

	jsonContentType = "application/json"
)

var (
	refreshPaths = map[Scope]string{
		ScopeUser:  APIPrefix + "/auth/refresh",
		ScopeAdmin: APIPrefix + "/admin/auth/refresh",
	}

	// these answer 401 for bad credentials, never for an expired access token
	noRefreshPaths = map[string]bool{
		APIPrefix + "/auth/login":          true,
		APIPrefix + "/auth/register":       true,
		APIPrefix + "/auth/refresh":        true,
		APIPrefix + "/admin/auth/login":    true,
		APIPrefix + "/admin/auth/refresh":  true,
		APIPrefix + "/auth/reset-password": true,
	}

	// sharedCollections maps a collection to the user-scope collection serving the same data.
	sharedCollections = map[Scope]map[string]string{
		ScopeAdmin: {
			"packages":     "packages",
			"destinations": "destinations",
			"activities":   "activities",
			"offers":       "offers",
			"trip-types":   "trip-types",
			"promo-codes":  "promo_codes",
			"blogs":        "blogs",
			"bookings":     "bookings",
		},
		ScopeUser: {
			"my-blogs": "blogs",
		},
	}

	errNoRefreshToken = errors.New("no refresh token")
)

type Option func(*Client)

// WithHTTPClient sets the client sending the requests. Its own Timeout still applies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request, refreshes included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.tokens = store }
}

// WithCache replaces the response cache. A non-positive ttl means the cache's default.
func WithCache(cache core.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithLoginRequired sets the hook called when a scope needs its user to log in again.
func WithLoginRequired(hook func(scope Scope, message string)) Option {
	return func(c *Client) { c.onLoginRequired = hook }
}

func WithLogger(logger core.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

type Client struct {
	baseURL         string
	http            *http.Client
	timeout         time.Duration
	tokens          TokenStore
	cache           core.Cache
	cacheTTL        time.Duration
	onLoginRequired func(scope Scope, message string)
	logger          core.Logger

	refreshes singleflight.Group

	mu       sync.Mutex
	inflight map[string]struct{}

	Health       *HealthService
	Auth         *AuthService
	Packages     *PackageService
	Destinations *DestinationService
	Offers       *OfferService
	TripTypes    *TripTypeService
	Activities   *ActivityService
	PromoCodes   *PromoCodeService
	Bookings     *BookingService
	Blogs        *BlogService
	AdminAuth    *AdminAuthService
	Admin        *AdminService
}

// New returns a Client for the API served at baseURL, e.g. "https://api.vistavoyage.com".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     http.DefaultClient,
		timeout:  DefaultTimeout,
		tokens:   NewMemoryTokenStore(),
		cacheTTL: DefaultCacheTTL,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		// entries expire on read, so no janitor to stop
		c.cache = cachesvc.New(c.cacheTTL, 0)
	}

	c.Health = &HealthService{c: c}
	c.Auth = &AuthService{c: c}
	c.Packages = &PackageService{c: c}
	c.Destinations = &DestinationService{c: c}
	c.Offers = &OfferService{c: c}
	c.TripTypes = &TripTypeService{c: c}
	c.Activities = &ActivityService{c: c}
	c.PromoCodes = &PromoCodeService{c: c}
	c.Bookings = &BookingService{c: c}
	c.Blogs = &BlogService{c: c}
	c.AdminAuth = &AdminAuthService{c: c}
	c.Admin = newAdminService(c)
	return c
}

// ScopeOf returns the scope whose tokens authenticate requests to path.
func ScopeOf(path string) Scope {
	if strings.HasPrefix(path, adminPrefix) {
		return ScopeAdmin
	}
	return ScopeUser
}

// IsAuthenticated reports whether scope holds an access token.
func (c *Client) IsAuthenticated(scope Scope) bool {
	tokens, err := c.tokens.Get(scope)
	return err == nil && tokens.AccessToken != ""
}

// SetTokens stores the tokens of scope and drops the responses cached for the previous ones.
func (c *Client) SetTokens(scope Scope, tokens Tokens) error {
	c.cache.InvalidatePrefix(cacheKey(scope, ""))
	return c.tokens.Set(scope, tokens)
}

// ClearTokens forgets the tokens of scope and the responses cached for them.
func (c *Client) ClearTokens(scope Scope) error {
	c.cache.InvalidatePrefix(cacheKey(scope, ""))
	return c.tokens.Clear(scope)
}

func cacheKey(scope Scope, target string) string {
	return string(scope) + ":" + target
}

// do sends in as JSON and decodes the response into out; both may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return errors.Wrap(err, "encoding request body")
		}
	}
	return c.send(ctx, method, path, query, jsonContentType, body, out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, contentType string, body []byte, out interface{}) error {
	scope := ScopeOf(path)
	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	if method == http.MethodGet {
		key := cacheKey(scope, target)
		if cached, ok := c.cache.Get(key); ok {
			return decode(cached.([]byte), out)
		}
		data, err := c.roundTrip(ctx, scope, method, path, target, contentType, body)
		if err != nil {
			return err
		}
		c.cache.SetWithTTL(key, data, c.cacheTTL)
		return decode(data, out)
	}

	release, err := c.acquire(method, target, body)
	if err != nil {
		return err
	}
	defer release()

	data, err := c.roundTrip(ctx, scope, method, path, target, contentType, body)
	if err != nil {
		return err
	}
	c.invalidate(scope, path)
	return decode(data, out)
}

func decode(data []byte, out interface{}) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "decoding response body")
}

// acquire marks the mutation as in flight until release is called.
func (c *Client) acquire(method, target string, body []byte) (release func(), err error) {
	sum := sha256.Sum256(body)
	key := method + " " + target + " " + hex.EncodeToString(sum[:])

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[key]; busy {
		return nil, ErrDuplicateSubmit
	}
	c.inflight[key] = struct{}{}
	return func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}, nil
}

// roundTrip sends the request with the scope's access token.
// On 401 it refreshes the tokens once and resends; it never retries more.
func (c *Client) roundTrip(ctx context.Context, scope Scope, method, path, target, contentType string, body []byte) ([]byte, error) {
	tokens, err := c.tokens.Get(scope)
	if err != nil {
		return nil, errors.Wrap(err, "loading tokens")
	}

	status, data, err := c.exchange(ctx, method, target, contentType, body, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && !noRefreshPaths[path] {
		switch {
		case tokens.AccessToken == "":
			c.loginRequired(scope, "login required")
		default:
			fresh, err := c.refresh(ctx, scope, tokens)
			if err != nil {
				if c.logger != nil {
					c.logger.Warn("token refresh failed for scope "+string(scope), err)
				}
				_ = c.ClearTokens(scope)
				c.loginRequired(scope, "session expired")
				break
			}
			if status, data, err = c.exchange(ctx, method, target, contentType, body, fresh.AccessToken); err != nil {
				return nil, err
			}
		}
	}

	if status < 200 || status >= 300 {
		return nil, parseError(status, data)
	}
	return data, nil
}

func (c *Client) exchange(ctx context.Context, method, target, contentType string, body []byte, token string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+target, rd)
	if err != nil {
		return 0, nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", jsonContentType)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, normalise(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, normalise(ctx, err)
	}
	return resp.StatusCode, data, nil
}

func normalise(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return timeoutError(err)
	}
	return transportError(err)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refresh exchanges the refresh token of stale for a new pair.
// Concurrent refreshes of one scope share a single request.
func (c *Client) refresh(ctx context.Context, scope Scope, stale Tokens) (Tokens, error) {
	v, err, _ := c.refreshes.Do(string(scope), func() (interface{}, error) {
		// a concurrent request may have rotated the tokens already
		current, err := c.tokens.Get(scope)
		if err == nil && current.AccessToken != "" && current.AccessToken != stale.AccessToken {
			return current, nil
		}
		if stale.RefreshToken == "" {
			return nil, errNoRefreshToken
		}

		body, err := json.Marshal(refreshRequest{RefreshToken: stale.RefreshToken})
		if err != nil {
			return nil, errors.Wrap(err, "encoding refresh request")
		}
		status, data, err := c.exchange(ctx, http.MethodPost, refreshPaths[scope], jsonContentType, body, "")
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, parseError(status, data)
		}

		var pair Tokens
		if err = json.Unmarshal(data, &pair); err != nil {
			return nil, errors.Wrap(err, "decoding refresh response")
		}
		if pair.AccessToken == "" {
			return nil, errors.New("refresh response has no access token")
		}
		if err = c.tokens.Set(scope, pair); err != nil {
			return nil, errors.Wrap(err, "storing refreshed tokens")
		}
		return pair, nil
	})
	if err != nil {
		return Tokens{}, err
	}
	return v.(Tokens), nil
}

func (c *Client) loginRequired(scope Scope, message string) {
	if c.onLoginRequired != nil {
		c.onLoginRequired(scope, message)
	}
}

// invalidate drops the cached reads of the collection path belongs to,
// and of the user-scope collection serving the same data.
func (c *Client) invalidate(scope Scope, path string) {
	area, collection := splitPath(path)
	if collection == "" {
		c.cache.InvalidatePrefix(cacheKey(scope, area))
		return
	}
	c.cache.InvalidatePrefix(cacheKey(scope, area+"/"+collection))
	if shared, ok := sharedCollections[scope][collection]; ok {
		c.cache.InvalidatePrefix(cacheKey(ScopeUser, userPrefix+shared))
	}
}

// splitPath splits "/api/v1/admin/packages/42/toggle-active" into "/api/v1/admin" and "packages".
func splitPath(path string) (area, collection string) {
	rest := strings.Trim(strings.TrimPrefix(path, APIPrefix), "/")
	parts := strings.SplitN(rest, "/", 3)
	area = APIPrefix + "/" + parts[0]
	if len(parts) > 1 {
		collection = parts[1]
	}
	return area, collection
}
