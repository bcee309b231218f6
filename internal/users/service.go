// Package users exposes the caller's profile, session sign-out and the contact lookup
// used by the notification worker.
package users

import (
	"context"
	"errors"

	"gig-marketplace/internal/common/auth"
	"gig-marketplace/internal/common/database"
	apperrors "gig-marketplace/internal/common/errors"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/retry"
	"gig-marketplace/internal/models"
)

// SessionRevoker ends sessions. Implemented by *auth.SessionStore.
type SessionRevoker interface {
	Revoke(ctx context.Context, token string) error
	RevokeAll(ctx context.Context, userID string) (int, error)
}

type Service struct {
	store    Store
	sessions SessionRevoker
	logger   logger.Logger
	retry    retry.Policy
}

func NewService(store Store, sessions SessionRevoker, log logger.Logger) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		logger:   log.WithFields(map[string]interface{}{"component": "users"}),
		retry:    retry.Transient,
	}
}

func (s *Service) get(ctx context.Context, id string) (*models.User, error) {
	var u *models.User
	err := retry.Do(ctx, s.retry, "get user", s.logger, database.IsTransient, func(ctx context.Context) error {
		var err error
		u, err = s.store.Get(ctx, id)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.NewNotFoundError("User", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}
	return u, nil
}

// Me returns the profile of caller.
func (s *Service) Me(ctx context.Context, caller *auth.Identity) (*models.User, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to view your profile")
	}
	return s.get(ctx, caller.UserID)
}

// Contact returns where notifications for userID are delivered.
func (s *Service) Contact(ctx context.Context, userID string) (*models.Contact, error) {
	u, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.Contact{UserID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}, nil
}

// SignOut revokes the session behind token.
func (s *Service) SignOut(ctx context.Context, caller *auth.Identity, token string) error {
	if caller == nil || token == "" {
		return apperrors.NewUnauthenticatedError("no active session")
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("session revoked", map[string]interface{}{"userId": caller.UserID})
	return nil
}

// SignOutEverywhere revokes every session of caller and returns how many ended.
func (s *Service) SignOutEverywhere(ctx context.Context, caller *auth.Identity) (int, error) {
	if caller == nil {
		return 0, apperrors.NewUnauthenticatedError("no active session")
	}
	n, err := s.sessions.RevokeAll(ctx, caller.UserID)
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}
	return n, nil
}
