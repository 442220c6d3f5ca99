// Package auth verifies bearer tokens and turns their claims into the
// request scope and permission set used by the HTTP layer.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// PermissionAll grants every action
const PermissionAll = "*"

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrCompanyForbidden = errors.New("company not allowed by token")
)

// Claims carries who the caller is and which books they may touch.
// CompanyID is the default company; Companies lists any others the caller
// may switch to with X-Company-ID.
type Claims struct {
	jwt.RegisteredClaims
	TenantID    string   `json:"tenant_id"`
	CompanyID   string   `json:"company_id,omitempty"`
	Companies   []string `json:"companies,omitempty"`
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions,omitempty"`
}

// JWTService signs and verifies HS256 access tokens
type JWTService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: cfg.AccessTokenExpiration,
	}
}

// TokenInput describes the caller a token is issued for
type TokenInput struct {
	TenantID    uuid.UUID
	CompanyID   uuid.UUID
	Companies   []uuid.UUID
	UserID      uuid.UUID
	Permissions []string
}

// GenerateAccessToken signs a token for input. The server only verifies
// tokens; issuing lives here so operators and tests can mint them.
func (s *JWTService) GenerateAccessToken(input TokenInput) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiration)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   input.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		TenantID:    input.TenantID.String(),
		UserID:      input.UserID.String(),
		Permissions: input.Permissions,
	}
	if input.CompanyID != uuid.Nil {
		claims.CompanyID = input.CompanyID.String()
	}
	for _, id := range input.Companies {
		claims.Companies = append(claims.Companies, id.String())
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken parses and verifies a token
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.TenantID); err != nil {
		return nil, fmt.Errorf("%w: tenant_id", ErrInvalidToken)
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, fmt.Errorf("%w: user_id", ErrInvalidToken)
	}
	return claims, nil
}

// Scope builds the request scope. A non-nil requested company must be the
// token's default company or one of its listed companies.
func (c *Claims) Scope(requestedCompany uuid.UUID) (shared.RequestScope, error) {
	tenantID, err := uuid.Parse(c.TenantID)
	if err != nil {
		return shared.RequestScope{}, ErrInvalidToken
	}
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return shared.RequestScope{}, ErrInvalidToken
	}

	companyID := uuid.Nil
	if c.CompanyID != "" {
		if companyID, err = uuid.Parse(c.CompanyID); err != nil {
			return shared.RequestScope{}, ErrInvalidToken
		}
	}
	if requestedCompany != uuid.Nil && requestedCompany != companyID {
		if !slices.Contains(c.Companies, requestedCompany.String()) {
			return shared.RequestScope{}, ErrCompanyForbidden
		}
		companyID = requestedCompany
	}
	return shared.NewRequestScope(tenantID, companyID, userID), nil
}

// HasPermission reports whether the token grants permission. "*" grants all,
// "ledger:*" grants every ledger action.
func (c *Claims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == PermissionAll || p == permission {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, "*"); ok && strings.HasSuffix(prefix, ":") && strings.HasPrefix(permission, prefix) {
			return true
		}
	}
	return false
}
