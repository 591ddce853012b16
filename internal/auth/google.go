// Package auth runs the Google sign-in flow and hands the UI a session token.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "portfolio-backend/internal/shared/auth"
	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/users"
)

const (
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	subjectPrefix      = "google:"
	maxProfileBytes    = 64 << 10
)

var (
	errExchange      = errors.New("code exchange failed")
	errProfile       = errors.New("profile fetch failed")
	errProfileNoSub  = errors.New("profile has no subject")
	errUserStore     = errors.New("user store failed")
	errTokenIssue    = errors.New("token issue failed")
	errRedirectSetup = errors.New("ui redirect invalid")
)

// UserStore persists identities after sign-in.
type UserStore interface {
	UpsertFromAuth(ctx context.Context, user users.User) error
}

// GoogleConfig is the OAuth client registration plus where to send the
// browser once a token is issued.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UIRedirect   string
}

func (c GoogleConfig) complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

// GoogleService serves /auth/google/start and /auth/google/callback.
type GoogleService struct {
	cfg         GoogleConfig
	oauth       *oauth2.Config
	userInfoURL string
	states      *stateStore
	users       UserStore
}

// NewGoogleService builds the sign-in flow. userStore may be nil, in which
// case identities are only carried in the issued token.
func NewGoogleService(cfg GoogleConfig, userStore UserStore) *GoogleService {
	return &GoogleService{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: defaultUserInfoURL,
		states:      newStateStore(5 * time.Minute),
		users:       userStore,
	}
}

func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/auth/google")
	g.GET("/start", s.start)
	g.GET("/callback", s.callback)
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.cfg.complete() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}
	state := s.states.issue(time.Now())
	c.Redirect(http.StatusFound, s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

func (s *GoogleService) callback(c *gin.Context) {
	if msg := c.Query("error"); msg != "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "sign-in cancelled: "+msg, nil)
		return
	}
	state, code := c.Query("state"), c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}
	if !s.states.redeem(state, time.Now()) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	target, err := s.signIn(c.Request.Context(), code)
	if err != nil {
		status, errCode := callbackFailure(err)
		telemetry.Warn("auth.google_callback_failed", map[string]any{"error": err.Error(), "status": status})
		respond.Error(c, status, errCode, "sign-in failed", nil)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// signIn exchanges the code, records the user and returns the UI URL
// carrying the session token.
func (s *GoogleService) signIn(ctx context.Context, code string) (string, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errExchange, err)
	}
	p, err := s.profile(ctx, tok)
	if err != nil {
		return "", err
	}

	subject := subjectPrefix + p.Sub
	if s.users != nil && p.Email != "" {
		u := users.User{ID: subject, Email: p.Email, Name: p.Name, PictureURL: p.Picture}
		if err := s.users.UpsertFromAuth(ctx, u); err != nil {
			return "", fmt.Errorf("%w: %v", errUserStore, err)
		}
	}

	session, err := sharedauth.SignJWT(sharedauth.Claims{
		Sub:     subject,
		Email:   p.Email,
		Name:    p.Name,
		Picture: p.Picture,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errTokenIssue, err)
	}
	return withToken(s.cfg.UIRedirect, session)
}

func callbackFailure(err error) (int, string) {
	switch {
	case errors.Is(err, errExchange):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, errProfile), errors.Is(err, errProfileNoSub):
		return http.StatusBadGateway, "auth_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

type googleProfile struct {
	Sub     string `json:"sub"`
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *GoogleService) profile(ctx context.Context, tok *oauth2.Token) (googleProfile, error) {
	resp, err := s.oauth.Client(ctx, tok).Get(s.userInfoURL)
	if err != nil {
		return googleProfile{}, fmt.Errorf("%w: %v", errProfile, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return googleProfile{}, fmt.Errorf("%w: status %d", errProfile, resp.StatusCode)
	}

	var p googleProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes)).Decode(&p); err != nil {
		return googleProfile{}, fmt.Errorf("%w: %v", errProfile, err)
	}
	// v2 userinfo returns "id"; the OIDC endpoint returns "sub".
	if p.Sub == "" {
		p.Sub = p.ID
	}
	if p.Sub == "" {
		return googleProfile{}, errProfileNoSub
	}
	return p, nil
}

func withToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errRedirectSetup
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errRedirectSetup, err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
