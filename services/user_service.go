package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aurora-shield/aurora-shield/database"
	"github.com/aurora-shield/aurora-shield/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Registration struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

type UserService struct {
	store      database.Store
	bcryptCost int
	security   *zap.Logger
}

func NewUserService(store database.Store, logger *zap.Logger) *UserService {
	return &UserService{
		store:      store,
		bcryptCost: bcrypt.DefaultCost,
		security:   logger.Named("security"),
	}
}

// WithCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *UserService) WithCost(cost int) *UserService {
	s.bcryptCost = cost
	return s
}

// Register creates the account. Input is expected to be validated already;
// a taken email surfaces as database.ErrDuplicateEmail.
func (s *UserService) Register(ctx context.Context, reg Registration, ip string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(reg.Name),
		Email:        NormalizeEmail(reg.Email),
		PasswordHash: string(hashedPassword),
		Phone:        strings.TrimSpace(reg.Phone),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			s.security.Warn("registration with existing email",
				zap.String("email", user.Email),
				zap.String("ip", ip))
		}
		return nil, err
	}

	s.security.Info("user registered",
		zap.String("email", user.Email),
		zap.String("ip", ip))
	return user, nil
}

func (s *UserService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	return s.store.UserByID(ctx, userID)
}
