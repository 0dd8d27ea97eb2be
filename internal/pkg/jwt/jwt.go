// Package jwt verifies access tokens issued by the Supabase auth service.
package jwt

import (
	"errors"
	"time"

	"diasporan-backend/internal/constants"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type AppMetadata struct {
	Role string `json:"role,omitempty"`
}

// Claims is the subset of a Supabase access token the API relies on.
type Claims struct {
	Email       string      `json:"email"`
	Role        string      `json:"role"`
	AppMetadata AppMetadata `json:"app_metadata"`
	jwtlib.RegisteredClaims
}

// UserID parses the subject as the user's id.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// AppRole is the application role. Supabase puts "authenticated" in the top-level
// role claim, so the app role lives in app_metadata.
func (c *Claims) AppRole() string {
	if constants.IsValidRole(c.AppMetadata.Role) {
		return c.AppMetadata.Role
	}
	return constants.Traveler
}

type Service struct {
	secret []byte
}

func New(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}), jwtlib.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateToken signs a token in the Supabase shape. Used by tests and local tooling.
func (s *Service) GenerateToken(userID uuid.UUID, email, role string, ttl time.Duration) (string, error) {
	claims := Claims{
		Email:       email,
		Role:        "authenticated",
		AppMetadata: AppMetadata{Role: role},
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
}
