package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	operatorIssuer   = "bounty-indexer"
	operatorAudience = "operator"
)

// OperatorClaims - клеймы токена оператора (доступ к admin-маршрутам).
type OperatorClaims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

func (c *OperatorClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope || s == "*" {
			return true
		}
	}
	return false
}

// OperatorTokens отвечает за выпуск и проверку JWT операторов.
type OperatorTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewOperatorTokens(secret string, ttl time.Duration) *OperatorTokens {
	return &OperatorTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue выпускает токен оператора.
func (m *OperatorTokens) Issue(operator string, scopes ...string) (string, time.Time, error) {
	if operator == "" {
		return "", time.Time{}, errors.New("operator: не указан оператор")
	}
	now := m.now()
	exp := now.Add(m.ttl)
	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    operatorIssuer,
			Subject:   operator,
			Audience:  jwt.ClaimStrings{operatorAudience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Scopes: scopes,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse проверяет подпись, срок и аудиторию токена.
func (m *OperatorTokens) Parse(token string) (*OperatorClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &OperatorClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(operatorIssuer),
		jwt.WithAudience(operatorAudience),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := parsed.Claims.(*OperatorClaims); ok && parsed.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
