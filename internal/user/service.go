// Package user handles registration, login and the profile view.
package user

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/hardik-0129/backend/internal/auth"
	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/hardik-0129/backend/internal/logger"
)

const codeAttempts = 10

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique referral code")
)

// Referrals is the part of the referral engine registration triggers.
type Referrals interface {
	SignupBonus(ctx context.Context, userID int64) (*ledger.Transaction, error)
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	CodePrefix    string
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, string, string, error)
	Login(ctx context.Context, req LoginRequest) (*User, string, string, error)
	Profile(ctx context.Context, userID int64) (*Profile, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, *User, error)
}

type service struct {
	repo      Repository
	accounts  ledger.Reader
	referrals Referrals
	tokens    *auth.Issuer
	cfg       Config
}

func NewService(repo Repository, accounts ledger.Reader, referrals Referrals, cfg Config) Service {
	if cfg.CodePrefix == "" {
		cfg.CodePrefix = "Alpha"
	}
	return &service{
		repo:      repo,
		accounts:  accounts,
		referrals: referrals,
		tokens:    auth.NewIssuer(cfg.AccessSecret, cfg.RefreshSecret),
		cfg:       cfg,
	}
}

func identity(u *User) auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, string, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, "", "", err
	}
	if exists {
		return nil, "", "", ErrEmailExists
	}

	referredBy := strings.TrimSpace(req.ReferralCode)
	if referredBy != "" {
		ok, err := s.repo.ReferralCodeExists(ctx, referredBy)
		if err != nil {
			return nil, "", "", err
		}
		if !ok {
			return nil, "", "", ledger.ErrInvalidReferralCode
		}
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", "", err
	}

	user := &User{
		Name:           strings.TrimSpace(req.Name),
		Email:          email,
		PasswordHash:   passwordHash,
		Role:           auth.RoleUser,
		ReferredByCode: referredBy,
	}
	if err := s.create(ctx, user); err != nil {
		return nil, "", "", err
	}
	logger.Info("user registered", "user_id", user.ID, "referred", referredBy != "")

	if referredBy != "" && s.referrals != nil {
		if _, err := s.referrals.SignupBonus(ctx, user.ID); err != nil {
			logger.WithError(err).Error("signup referral bonus failed", "user_id", user.ID)
		}
	}

	pair, err := s.tokens.Issue(identity(user))
	if err != nil {
		return nil, "", "", err
	}

	return user, pair.AccessToken, pair.RefreshToken, nil
}

// create inserts u with a fresh referral code, retrying when the code collides.
func (s *service) create(ctx context.Context, u *User) error {
	for i := 0; i < codeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return err
		}
		taken, err := s.repo.ReferralCodeExists(ctx, code)
		if err != nil {
			return err
		}
		if taken {
			continue
		}

		u.ReferralCode = code
		err = s.repo.Create(ctx, u)
		if errors.Is(err, ErrReferralCodeTaken) {
			continue
		}
		return err
	}
	return ErrCodeSpaceExhausted
}

func (s *service) newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", s.cfg.CodePrefix, n.Int64()), nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*User, string, string, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, "", "", ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(identity(user))
	if err != nil {
		return nil, "", "", err
	}

	return user, pair.AccessToken, pair.RefreshToken, nil
}

func (s *service) Profile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	acct, err := s.accounts.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newProfile(user, acct), nil
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (string, *User, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.KindRefresh)
	if err != nil {
		return "", nil, err
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", nil, ErrUserNotFound
	}

	newAccessToken, err := s.tokens.Access(identity(user))
	if err != nil {
		return "", nil, err
	}

	return newAccessToken, user, nil
}
