package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	googleOAuth "golang.org/x/oauth2/google"

	"github.com/sayaka/teamboard/internal/domain"
)

// UserStore defines the user data access interface consumed by AuthService.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	Upsert(ctx context.Context, user domain.User) (*domain.User, error)
}

// AuthConfig holds OAuth and token-signing configuration.
type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	JWTSecret          string
	FrontendURL        string
}

// profile is the provider-independent identity extracted from a login.
type profile struct {
	ProviderID  string
	Email       string
	DisplayName string
	AvatarURL   string
}

// provider pairs an oauth2 config with its user-info fetcher.
type provider struct {
	oauth *oauth2.Config
	fetch func(ctx context.Context, accessToken string) (*profile, error)
}

// AuthService handles OAuth login and JWT issuance.
type AuthService struct {
	users     UserStore
	jwtSecret []byte
	providers map[domain.AuthProvider]provider
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, cfg AuthConfig) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(cfg.JWTSecret),
		providers: map[domain.AuthProvider]provider{
			domain.AuthProviderGoogle: {
				oauth: &oauth2.Config{
					ClientID:     cfg.GoogleClientID,
					ClientSecret: cfg.GoogleClientSecret,
					Endpoint:     googleOAuth.Endpoint,
					Scopes:       []string{"openid", "profile", "email"},
					RedirectURL:  cfg.FrontendURL + "/auth/google/callback",
				},
				fetch: fetchGoogleProfile,
			},
			domain.AuthProviderGitHub: {
				oauth: &oauth2.Config{
					ClientID:     cfg.GitHubClientID,
					ClientSecret: cfg.GitHubClientSecret,
					Endpoint:     github.Endpoint,
					Scopes:       []string{"user:email"},
					RedirectURL:  cfg.FrontendURL + "/auth/github/callback",
				},
				fetch: fetchGitHubProfile,
			},
		},
	}
}

// AuthURL returns the provider's OAuth authorization URL.
func (s *AuthService) AuthURL(p domain.AuthProvider, state string) (string, error) {
	prov, ok := s.providers[p]
	if !ok {
		return "", fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, p)
	}
	return prov.oauth.AuthCodeURL(state), nil
}

// TokenPair holds an access token and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Callback exchanges an authorization code, upserts the user, and returns a
// JWT pair.
func (s *AuthService) Callback(ctx context.Context, p domain.AuthProvider, code string) (*domain.User, *TokenPair, error) {
	prov, ok := s.providers[p]
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, p)
	}

	token, err := prov.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("%s token exchange: %w", p, err)
	}

	prof, err := prov.fetch(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s profile: %w", p, err)
	}

	user, err := s.users.Upsert(ctx, domain.User{
		Provider:    p,
		ProviderID:  prof.ProviderID,
		Email:       prof.Email,
		DisplayName: prof.DisplayName,
		AvatarURL:   strPtr(prof.AvatarURL),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("upsert %s user: %w", p, err)
	}

	pair, err := s.generateTokenPair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// ValidateToken validates a JWT access token and returns the user ID.
func (s *AuthService) ValidateToken(tokenString string) (int64, error) {
	return s.parseToken(tokenString, "access")
}

// RefreshAccessToken validates a refresh token and returns a new token pair.
func (s *AuthService) RefreshAccessToken(refreshToken string) (*TokenPair, error) {
	userID, err := s.parseToken(refreshToken, "refresh")
	if err != nil {
		return nil, err
	}
	return s.generateTokenPair(userID)
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) parseToken(tokenString, wantType string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, domain.ErrUnauthorized
	}

	tokenType, _ := claims["type"].(string)
	if tokenType != wantType {
		return 0, domain.ErrUnauthorized
	}

	userIDFloat, ok := claims["sub"].(float64)
	if !ok {
		return 0, domain.ErrUnauthorized
	}
	return int64(userIDFloat), nil
}

func (s *AuthService) generateTokenPair(userID int64) (*TokenPair, error) {
	now := time.Now()

	sign := func(tokenType string, ttl time.Duration) (string, error) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  userID,
			"type": tokenType,
			"iat":  now.Unix(),
			"exp":  now.Add(ttl).Unix(),
		})
		return token.SignedString(s.jwtSecret)
	}

	accessStr, err := sign("access", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refreshStr, err := sign("refresh", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessStr, RefreshToken: refreshStr}, nil
}

func fetchGoogleProfile(ctx context.Context, accessToken string) (*profile, error) {
	var info struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := getJSON(ctx, "https://www.googleapis.com/oauth2/v2/userinfo", accessToken, nil, &info); err != nil {
		return nil, err
	}
	return &profile{
		ProviderID:  info.ID,
		Email:       info.Email,
		DisplayName: info.Name,
		AvatarURL:   info.Picture,
	}, nil
}

func fetchGitHubProfile(ctx context.Context, accessToken string) (*profile, error) {
	ghHeaders := map[string]string{"Accept": "application/vnd.github.v3+json"}

	var info struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, "https://api.github.com/user", accessToken, ghHeaders, &info); err != nil {
		return nil, err
	}

	if info.Email == "" {
		var emails []struct {
			Email   string `json:"email"`
			Primary bool   `json:"primary"`
		}
		if err := getJSON(ctx, "https://api.github.com/user/emails", accessToken, ghHeaders, &emails); err != nil {
			return nil, err
		}
		for _, e := range emails {
			if e.Primary {
				info.Email = e.Email
				break
			}
		}
		if info.Email == "" && len(emails) > 0 {
			info.Email = emails[0].Email
		}
		if info.Email == "" {
			return nil, fmt.Errorf("no email found for github user %s", info.Login)
		}
	}

	return &profile{
		ProviderID:  fmt.Sprintf("%d", info.ID),
		Email:       info.Email,
		DisplayName: info.Login,
		AvatarURL:   info.AvatarURL,
	}, nil
}

func getJSON(ctx context.Context, url, accessToken string, headers map[string]string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
