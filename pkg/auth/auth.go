package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

var (
	ErrNoUser      = errors.New("user is not authenticated")
	ErrEmptySecret = errors.New("jwt secret is empty")
)

type Config struct {
	JWTSecret string        `yaml:"jwtSecret" envconfig:"AUTH_JWT_SECRET" json:"-"`
	TokenTTL  time.Duration `yaml:"tokenTTL" envconfig:"AUTH_TOKEN_TTL" default:"24h"`
}

type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type User struct {
	ID       int64
	Username string
	Role     string
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NewToken signs an HS256 token; used by tests and local tooling.
func NewToken(secret []byte, u User, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	claims := &Claims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func ParseToken(secret []byte, tokenStr string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID <= 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type userKeyType int

const userKey userKeyType = 1

func SetAuthContext(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	return u, ok
}

func GetUserID(ctx context.Context) (int64, error) {
	u, ok := FromContext(ctx)
	if !ok {
		return 0, ErrNoUser
	}
	return u.ID, nil
}

func IsAdmin(ctx context.Context) bool {
	u, ok := FromContext(ctx)
	return ok && u.IsAdmin()
}
