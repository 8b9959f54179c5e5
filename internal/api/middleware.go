package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/yakoovad/gitlab-mr-batch/internal/auth"
	"github.com/yakoovad/gitlab-mr-batch/internal/service"
	"github.com/yakoovad/gitlab-mr-batch/pkg/logger"
	"go.uber.org/zap"
)

const (
	loggerKey     = "logger"
	claimsKey     = "claims"
	credentialKey = "credential"
)

func ZapLoggerMiddleware(l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)

			reqLogger := l.With(
				zap.String("request_id", requestID),
			)

			c.Set(loggerKey, reqLogger)

			ctx := logger.WithLogger(req.Context(), reqLogger)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			latency := time.Since(start)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.String("remote_ip", c.RealIP()),
				zap.Int("status", res.Status),
				zap.Duration("latency", latency),
				zap.Int64("bytes_in", req.ContentLength),
				zap.Int64("bytes_out", res.Size),
			}

			if err != nil {
				fields = append(fields, zap.Error(err))
				reqLogger.Error("request failed", fields...)
			} else {
				reqLogger.Info("request completed", fields...)
			}

			return err
		}
	}
}

func GetLoggerFromContext(c echo.Context) *zap.Logger {
	if l, ok := c.Get(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// AuthMiddleware accepts a bearer session token, resolves the GitLab credential
// stored for it and makes both available to handlers.
func AuthMiddleware(sessions *service.SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				return unauthorized(c, "missing session token")
			}

			claims, ok := auth.IsValidToken(tokenString)
			if !ok {
				if expired, isExpired := auth.ExpiredClaims(tokenString); isExpired {
					if err := sessions.Expire(c.Request().Context(), expired.Subject, expired.Type); err != nil {
						GetLoggerFromContext(c).Warn("failed to drop expired credential", zap.Any("error", err))
					}
					return unauthorized(c, "session expired")
				}
				return unauthorized(c, "invalid session token")
			}

			cred, err := sessions.Credential(c.Request().Context(), claims.Subject)
			if err != nil {
				return c.JSON(statusOf(err.Code), struct {
					Error *service.Error `json:"error"`
				}{Error: err})
			}

			l := GetLoggerFromContext(c).With(zap.String("subject", claims.Subject))
			c.Set(loggerKey, l)
			c.Set(claimsKey, claims)
			c.Set(credentialKey, cred)
			c.SetRequest(c.Request().WithContext(logger.WithLogger(c.Request().Context(), l)))

			return next(c)
		}
	}
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, struct {
		Error *service.Error `json:"error"`
	}{Error: service.NewError(service.ErrorCodeUnauthorized, message)})
}

func credentialFromContext(c echo.Context) *service.Credential {
	cred, _ := c.Get(credentialKey).(*service.Credential)
	return cred
}
