package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/config"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
)

const (
	// AccountIDKey holds the caller's account id, taken from the token subject
	AccountIDKey = "account_id"
	// RoleKey holds the caller's shared.Role
	RoleKey = "role"
)

var errMissingToken = errors.New("missing bearer token")

// Claims are the access token claims issued by the identity provider. The
// subject is the seller's account id.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 access tokens
type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewTokenVerifier(cfg *config.AuthConfig) *TokenVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &TokenVerifier{
		secret: []byte(cfg.JWTSecret),
		parser: jwt.NewParser(opts...),
	}
}

// Verify returns the account id and role carried by a valid token
func (v *TokenVerifier) Verify(tokenString string) (uuid.UUID, shared.Role, error) {
	var claims Claims
	_, err := v.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil || accountID == uuid.Nil {
		return uuid.Nil, "", fmt.Errorf("invalid subject %q", claims.Subject)
	}

	role := shared.Role(claims.Role)
	switch role {
	case "":
		role = shared.RoleSeller
	case shared.RoleSeller, shared.RoleAdmin:
	default:
		return uuid.Nil, "", fmt.Errorf("unknown role %q", claims.Role)
	}
	return accountID, role, nil
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return "", errMissingToken
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}

// Auth rejects requests without a valid bearer token
func Auth(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
			return
		}

		accountID, role, err := verifier.Verify(token)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			return
		}

		c.Set(AccountIDKey, accountID)
		c.Set(RoleKey, role)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a token is sent. Guests pass
// through; a present but invalid token is still rejected.
func OptionalAuth(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			c.Next()
			return
		}

		accountID, role, err := verifier.Verify(token)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			return
		}

		c.Set(AccountIDKey, accountID)
		c.Set(RoleKey, role)
		c.Next()
	}
}

// RequireRole must run after Auth
func RequireRole(role shared.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != role {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Insufficient role")
			return
		}
		c.Next()
	}
}

// GetAccountID returns the authenticated account id
func GetAccountID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(AccountIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

// GetRole returns the authenticated role, or "" for guests
func GetRole(c *gin.Context) shared.Role {
	if v, exists := c.Get(RoleKey); exists {
		if role, ok := v.(shared.Role); ok {
			return role
		}
	}
	return ""
}
