package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/chatdesk/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for tokens that cannot be parsed or verified
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingAccount is returned when the token names no account
	ErrMissingAccount = errors.New("token carries no account id")
)

// Operator is the authenticated console user
type Operator struct {
	Subject   string
	AccountID string
	ExpiresAt time.Time
	// Token is forwarded to the backend on every request
	Token string
}

// TokenParser reads operator tokens issued by the backend
type TokenParser struct {
	secret       []byte
	accountClaim string
	parser       *jwt.Parser
}

// NewTokenParser creates a token parser
func NewTokenParser(cfg config.AuthConfig) *TokenParser {
	claim := cfg.AccountClaim
	if claim == "" {
		claim = "accountId"
	}
	return &TokenParser{
		secret:       []byte(cfg.TokenSecret),
		accountClaim: claim,
		parser:       jwt.NewParser(jwt.WithExpirationRequired()),
	}
}

// Parse validates tokenString and returns the operator it identifies.
// Without a configured secret only the claims and expiry are checked.
func (p *TokenParser) Parse(tokenString string) (*Operator, error) {
	claims := jwt.MapClaims{}

	if len(p.secret) > 0 {
		token, err := p.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return p.secret, nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		if !token.Valid {
			return nil, ErrInvalidToken
		}
	} else {
		if _, _, err := p.parser.ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		exp, err := claims.GetExpirationTime()
		if err != nil || exp == nil {
			return nil, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
		}
		if time.Now().After(exp.Time) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, jwt.ErrTokenExpired)
		}
	}

	account, _ := claims[p.accountClaim].(string)
	if account == "" {
		return nil, ErrMissingAccount
	}

	op := &Operator{AccountID: account, Token: tokenString}
	if sub, err := claims.GetSubject(); err == nil {
		op.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		op.ExpiresAt = exp.Time
	}
	return op, nil
}

// Issue signs a token for accountID. Used by local tooling and tests; the
// backend issues production tokens.
func (p *TokenParser) Issue(subject, accountID string, ttl time.Duration) (string, error) {
	if len(p.secret) == 0 {
		return "", errors.New("token secret is not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":          subject,
		p.accountClaim: accountID,
		"iat":          now.Unix(),
		"nbf":          now.Unix(),
		"exp":          now.Add(ttl).Unix(),
		"iss":          "chatdesk-console",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}
