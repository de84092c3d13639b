// Package auth выпускает и проверяет токены операторов административного API.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/annel0/pilotsim/internal/config"
)

const (
	minSecretLen = 32
	defaultTTL   = 24 * time.Hour
)

var (
	// ErrInvalidToken токен не прошёл проверку подписи или срока
	ErrInvalidToken = errors.New("недействительный токен")
	// ErrShortSecret секрет короче 32 байт
	ErrShortSecret = errors.New("секрет должен быть не короче 32 байт")
)

// Claims данные токена оператора
type Claims struct {
	Operator string `json:"operator"`
	Admin    bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Issuer подписывает и проверяет токены одним секретом
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewIssuer создаёт издателя из конфигурации. Пустой секрет заменяется
// случайным: такие токены действуют только до перезапуска процесса.
func NewIssuer(cfg config.AuthConfig) (*Issuer, error) {
	var secret []byte
	if cfg.JWTSecret == "" {
		secret = make([]byte, minSecretLen)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("не удалось сгенерировать секрет: %w", err)
		}
	} else {
		decoded, err := base64.StdEncoding.DecodeString(cfg.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("секрет не в base64: %w", err)
		}
		if len(decoded) < minSecretLen {
			return nil, ErrShortSecret
		}
		secret = decoded
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "pilotsim"
	}
	return &Issuer{secret: secret, issuer: issuer, ttl: defaultTTL}, nil
}

// Issue выпускает токен оператора
func (i *Issuer) Issue(operator string, admin bool) (string, error) {
	now := time.Now()
	claims := &Claims{
		Operator: operator,
		Admin:    admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    i.issuer,
			Subject:   operator,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Validate проверяет подпись, срок и издателя токена
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithIssuer(i.issuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// GenerateSecret возвращает новый случайный секрет в base64 для конфигурации
func GenerateSecret() (string, error) {
	b := make([]byte, minSecretLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
