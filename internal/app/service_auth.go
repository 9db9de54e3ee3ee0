package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sharelist/api/internal/auth"
	"sharelist/api/internal/authpw"
	"sharelist/api/internal/session"
	"sharelist/api/internal/store"
	"sharelist/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       int64
	UserName     string
	JTI          string
	ExpiresAt    time.Time
	User         store.User
}

func (s *Service) Register(ctx context.Context, req authpw.RegisterRequest) (UserView, error) {
	user, err := s.auth.Register(ctx, req)
	if err != nil {
		return UserView{}, err
	}
	return userView(user), nil
}

// Login accepts a username or an email. Unknown users, wrong passwords and
// inactive accounts all fail the same way.
func (s *Service) Login(ctx context.Context, identifier, password string) (Session, error) {
	user, err := s.auth.Authenticate(ctx, identifier, password)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates a refresh token: the old one is revoked before a new pair
// is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if refreshToken == "" {
		return Session{}, auth.ErrInvalidToken
	}
	tokenHash := auth.HashToken(refreshToken)
	owner, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, session.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, owner.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	if !user.IsActive {
		return Session{}, auth.ErrInvalidToken
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.NewClaims(user.ID, user.Username, jti, expiresAt))
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Username,
		JTI:          jti,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

// SessionFromToken authenticates a bearer token. A deleted user or a revoked
// token is an invalid token; an inactive user is USER_INACTIVE.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	if !user.IsActive {
		return Session{}, errUserInactive
	}

	out := Session{
		Token:    token,
		UserID:   user.ID,
		UserName: user.Username,
		JTI:      claims.ID,
		User:     user,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (s *Service) Logout(ctx context.Context, current Session, refreshToken string) error {
	if current.JTI != "" {
		if err := s.sessions.RevokeAccessToken(ctx, current.JTI, current.ExpiresAt); err != nil {
			return err
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) UpdateProfile(ctx context.Context, current Session, update authpw.ProfileUpdate) (UserView, error) {
	user, err := s.auth.UpdateProfile(ctx, current.UserID, update)
	if err != nil {
		return UserView{}, err
	}
	return userView(user), nil
}
