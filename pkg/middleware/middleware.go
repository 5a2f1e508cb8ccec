package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/zerodice0/readzone/pkg/auth"
)

const (
	AuthorizationHeader = "Authorization"
	bearer              = "Bearer "
)

// JwtAuthentication rejects requests without a valid bearer token.
func JwtAuthentication(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authorization := c.Request().Header.Get(AuthorizationHeader)
			if authorization == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "No Authorization Header")
			}
			return authenticate(c, next, secret, authorization)
		}
	}
}

// OptionalJwtAuthentication lets anonymous requests through but still rejects bad tokens.
func OptionalJwtAuthentication(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authorization := c.Request().Header.Get(AuthorizationHeader)
			if authorization == "" {
				return next(c)
			}
			return authenticate(c, next, secret, authorization)
		}
	}
}

func authenticate(c echo.Context, next echo.HandlerFunc, secret []byte, authorization string) error {
	if !strings.HasPrefix(authorization, bearer) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization Header")
	}
	claims, err := auth.ParseToken(secret, strings.TrimPrefix(authorization, bearer))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "JwtAccessDenied")
	}

	req := c.Request()
	ctx := auth.SetAuthContext(req.Context(), auth.User{
		ID:       claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	})
	c.SetRequest(req.WithContext(ctx))
	return next(c)
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !auth.IsAdmin(c.Request().Context()) {
			return echo.NewHTTPError(http.StatusForbidden, "admin role required")
		}
		return next(c)
	}
}

func NewRateLimiter(rps rate.Limit) echo.MiddlewareFunc {
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rps))
}

func RequestLoggerConfig(log *zap.Logger) middleware.RequestLoggerConfig {
	log = log.Named("echo")
	return middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		HandleError:  true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := zapcore.InfoLevel
			if v.Status >= http.StatusInternalServerError {
				level = zapcore.ErrorLevel
			} else if v.Error != nil {
				level = zapcore.WarnLevel
			}
			log.Log(level, "request",
				zap.String("URI", v.URI),
				zap.String("Method", v.Method),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}
}
