package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"github.com/yakoovad/gitlab-mr-batch/internal/auth"
	"github.com/yakoovad/gitlab-mr-batch/internal/db"
	"github.com/yakoovad/gitlab-mr-batch/internal/gitlab"
	"github.com/yakoovad/gitlab-mr-batch/internal/repository"
	"github.com/yakoovad/gitlab-mr-batch/pkg/logger"
	"go.uber.org/zap"
)

const (
	DefaultSessionTTL    = 12 * time.Hour
	DefaultPersistentTTL = 30 * 24 * time.Hour

	credentialKeyPrefix = "credential:"
)

// SessionService stores GitLab tokens behind signed session tokens.
// A credential lives in exactly one of two areas: the persistent one
// (remembered logins) or the session one (process memory).
type SessionService struct {
	tx db.Transactor

	persistent repository.KeyValueRepository
	session    repository.KeyValueRepository
	cache      *ProjectCache
	gitlab     GitLabClient

	sessionTTL    time.Duration
	persistentTTL time.Duration
}

func NewSessionService(tx db.Transactor) *SessionService {
	return &SessionService{
		tx:            tx,
		sessionTTL:    DefaultSessionTTL,
		persistentTTL: DefaultPersistentTTL,
	}
}

// Fingerprint identifies a GitLab token without revealing it.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Login validates token against GitLab, stores it in the chosen area and
// returns a signed session token.
func (s *SessionService) Login(ctx context.Context, token string, remember bool) (string, *Error) {
	l := logger.FromContext(ctx)

	if token == "" {
		return "", NewError(ErrorCodeInvalidBody, "token is required")
	}

	if _, err := s.gitlab.ListProjects(ctx, token, 1, 1, ""); err != nil {
		l.Warn("token validation failed", zap.Int("status", gitlab.StatusCode(err)), zap.Error(err))
		return "", NewError(ErrorCodeUnauthorized, "Invalid token")
	}

	subject := Fingerprint(token)
	key := credentialKeyPrefix + subject

	keep, drop := s.session, s.persistent
	tokenType, ttl := auth.TokenTypeSession, s.sessionTTL
	if remember {
		keep, drop = s.persistent, s.session
		tokenType, ttl = auth.TokenTypePersistent, s.persistentTTL
	}

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := keep.Set(txCtx, key, []byte(token)); err != nil {
			return errors.Wrap(err, "failed to store credential")
		}
		return errors.Wrap(drop.Delete(txCtx, key), "failed to clear credential from the other area")
	})
	if err != nil {
		l.Error("failed to save credential", zap.Error(err))
		return "", NewError(ErrorCodeUnspecified, "failed to save credential")
	}

	signed, err := auth.GenerateToken(tokenType, subject, ttl)
	if err != nil {
		l.Error("failed to sign session token", zap.Error(err))
		return "", NewError(ErrorCodeUnspecified, "failed to issue session token")
	}

	l.Info("user logged in", zap.String("subject", subject), zap.Bool("remember", remember))

	return signed, nil
}

// Credential loads the GitLab token stored for subject, persistent area first.
func (s *SessionService) Credential(ctx context.Context, subject string) (*Credential, *Error) {
	key := credentialKeyPrefix + subject

	for _, store := range []repository.KeyValueRepository{s.persistent, s.session} {
		token, err := store.Get(ctx, key)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			logger.FromContext(ctx).Error("failed to load credential", zap.String("subject", subject), zap.Error(err))
			return nil, NewError(ErrorCodeUnspecified, "failed to load credential")
		}
		return &Credential{Subject: subject, Token: string(token)}, nil
	}

	return nil, NewError(ErrorCodeUnauthorized, "session expired")
}

// Logout forgets the credential in both areas together with its project cache.
func (s *SessionService) Logout(ctx context.Context, subject string) *Error {
	l := logger.FromContext(ctx)
	key := credentialKeyPrefix + subject

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.persistent.Delete(txCtx, key); err != nil {
			return errors.Wrap(err, "failed to delete persistent credential")
		}
		if s.cache == nil {
			return nil
		}
		return s.cache.Clear(txCtx, subject)
	})
	if err == nil {
		err = errors.Wrap(s.session.Delete(ctx, key), "failed to delete session credential")
	}
	if err != nil {
		l.Error("failed to log out", zap.String("subject", subject), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to log out")
	}

	l.Info("user logged out", zap.String("subject", subject))
	return nil
}

// Expire drops the credential an expired session token of tokenType points
// at. Only the area that token type writes to is touched, so a later login
// into the other area survives.
func (s *SessionService) Expire(ctx context.Context, subject string, tokenType auth.TokenType) *Error {
	l := logger.FromContext(ctx)
	key := credentialKeyPrefix + subject

	var err error
	switch tokenType {
	case auth.TokenTypeSession:
		err = errors.Wrap(s.session.Delete(ctx, key), "failed to delete session credential")
	case auth.TokenTypePersistent:
		err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
			if err := s.persistent.Delete(txCtx, key); err != nil {
				return errors.Wrap(err, "failed to delete persistent credential")
			}
			if s.cache == nil {
				return nil
			}
			return s.cache.Clear(txCtx, subject)
		})
	default:
		return NewError(ErrorCodeUnauthorized, "unknown session type")
	}
	if err != nil {
		l.Error("failed to drop expired credential", zap.String("subject", subject), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to drop expired credential")
	}

	l.Info("expired credential dropped", zap.String("subject", subject), zap.String("type", string(tokenType)))
	return nil
}

func (s *SessionService) WithPersistentRepo(r repository.KeyValueRepository) *SessionService {
	s.persistent = r
	return s
}

func (s *SessionService) WithSessionRepo(r repository.KeyValueRepository) *SessionService {
	s.session = r
	return s
}

func (s *SessionService) WithProjectCache(c *ProjectCache) *SessionService {
	s.cache = c
	return s
}

func (s *SessionService) WithGitLab(c GitLabClient) *SessionService {
	s.gitlab = c
	return s
}

func (s *SessionService) WithTTL(session, persistent time.Duration) *SessionService {
	s.sessionTTL = session
	s.persistentTTL = persistent
	return s
}
