// Package middleware provides HTTP middleware for the application.
package middleware

import (
	"errors"
	"fmt"
	"strings"

	"socially/internal/config"
	"socially/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const identityLocalsKey = "identity"

// ErrMissingToken is returned when a request carries no bearer token.
var ErrMissingToken = errors.New("missing identity token")

// IdentityVerifier validates tokens minted by the external identity provider.
// Only the subject and profile claims are read; users are never authenticated
// locally.
type IdentityVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewIdentityVerifier creates a verifier from the auth settings in cfg.
func NewIdentityVerifier(cfg *config.Config) *IdentityVerifier {
	return &IdentityVerifier{
		secret:   []byte(cfg.AuthJWTSecret),
		issuer:   cfg.AuthIssuer,
		audience: cfg.AuthAudience,
	}
}

// Verify parses tokenString and returns the identity it asserts.
func (v *IdentityVerifier) Verify(tokenString string) (*models.ExternalIdentity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return nil, errors.New("token is missing a subject")
	}

	identity := &models.ExternalIdentity{
		Subject:  sub,
		Email:    stringClaim(claims, "email"),
		Username: stringClaim(claims, "preferred_username"),
		Name:     stringClaim(claims, "name"),
		Picture:  stringClaim(claims, "picture"),
	}
	if identity.Username == "" {
		identity.Username = stringClaim(claims, "username")
	}
	return identity, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// tokenFromRequest reads the bearer token from the Authorization header, or
// from the token query parameter for WebSocket upgrades.
func tokenFromRequest(c *fiber.Ctx) (string, error) {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", errors.New("invalid authorization header format")
		}
		return parts[1], nil
	}
	if token := c.Query("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

// fromRequest verifies the token carried by the request and stores the
// resulting identity in Locals. ErrMissingToken means no token was sent.
func (v *IdentityVerifier) fromRequest(c *fiber.Ctx) (*models.ExternalIdentity, error) {
	token, err := tokenFromRequest(c)
	if err != nil {
		return nil, err
	}
	identity, err := v.Verify(token)
	if err != nil {
		return nil, err
	}
	c.Locals(identityLocalsKey, identity)
	return identity, nil
}

// RequireIdentity rejects requests without a valid identity token.
func RequireIdentity(v *IdentityVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := v.fromRequest(c); err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, ErrMissingToken) {
				msg = "Authentication required"
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError(msg))
		}
		return c.Next()
	}
}

// OptionalIdentity attaches the identity when a valid token is present and
// lets anonymous requests through untouched.
func OptionalIdentity(v *IdentityVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, _ = v.fromRequest(c)
		return c.Next()
	}
}

// IdentityFromContext returns the identity set by RequireIdentity or
// OptionalIdentity, or nil for anonymous requests.
func IdentityFromContext(c *fiber.Ctx) *models.ExternalIdentity {
	identity, _ := c.Locals(identityLocalsKey).(*models.ExternalIdentity)
	return identity
}
