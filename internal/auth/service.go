package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"shop-pos/internal/activity"
	"shop-pos/internal/apperr"
	"shop-pos/internal/database"
	"shop-pos/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound  = fmt.Errorf("%w: user", apperr.ErrNotFound)
	ErrUsernameTaken = fmt.Errorf("%w: username already exists", apperr.ErrValidation)
	ErrInvalidRole   = fmt.Errorf("%w: role must be Admin or Cashier", apperr.ErrValidation)
	ErrEmptyPassword = fmt.Errorf("%w: password is required", apperr.ErrValidation)
	ErrWrongPassword = fmt.Errorf("%w: current password is incorrect", apperr.ErrValidation)
	ErrLastAdmin     = fmt.Errorf("%w: cannot remove the last admin", apperr.ErrIntegrity)
)

// Service verifies credentials and manages user accounts.
type Service struct {
	store *database.Store
}

func NewService(store *database.Store) *Service { return &Service{store: store} }

// Verify returns the user for a correct username/password pair, and nil, nil
// for a wrong one. A successful login is recorded in the activity log.
func (s *Service) Verify(ctx context.Context, username, password string) (*models.User, error) {
	db := s.store.DB().WithContext(ctx)

	var user models.User
	err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		log.Printf("failed login for %q", user.Username)
		return nil, nil
	}

	if err := activity.Record(db, user.ID, activity.Login, fmt.Sprintf("User '%s' logged in.", user.Username)); err != nil {
		log.Printf("record login activity: %v", err)
	}
	return &user, nil
}

func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.store.DB().WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.store.DB().WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UserInput is the editable part of a user.
type UserInput struct {
	Name     string `json:"name"`
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
	Role     string `json:"role" binding:"required"`
	Password string `json:"password"`
}

func (in *UserInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" {
		return fmt.Errorf("%w: username is required", apperr.ErrValidation)
	}
	if in.Role != models.RoleAdmin && in.Role != models.RoleCashier {
		return ErrInvalidRole
	}
	return nil
}

func (s *Service) CreateUser(ctx context.Context, actorID uint, in UserInput) (*models.User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, ErrEmptyPassword
	}
	if taken, err := s.usernameTaken(ctx, in.Username, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := models.User{Name: in.Name, Username: in.Username, Email: in.Email, Role: in.Role, PasswordHash: hash}

	err = s.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		return activity.Record(tx, actorID, activity.UserChange, fmt.Sprintf("Created user '%s' (%s)", u.Username, u.Role))
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser changes name, username, email and role. The password is left alone.
func (s *Service) UpdateUser(ctx context.Context, actorID, id uint, in UserInput) (*models.User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if taken, err := s.usernameTaken(ctx, in.Username, id); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsernameTaken
	}

	err = s.store.WithTx(ctx, func(tx *gorm.DB) error {
		if u.Role == models.RoleAdmin && in.Role != models.RoleAdmin {
			if err := ensureAnotherAdmin(tx, id); err != nil {
				return err
			}
		}
		u.Name, u.Username, u.Email, u.Role = in.Name, in.Username, in.Email, in.Role
		if err := tx.Save(u).Error; err != nil {
			return err
		}
		return activity.Record(tx, actorID, activity.UserChange, fmt.Sprintf("Updated user '%s'", u.Username))
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, actorID, id uint) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	var sales int64
	if err := s.store.DB().WithContext(ctx).Model(&models.Sale{}).Where("user_id = ?", id).Count(&sales).Error; err != nil {
		return err
	}
	if sales > 0 {
		return fmt.Errorf("%w: user '%s' has %d recorded sales", apperr.ErrIntegrity, u.Username, sales)
	}

	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		if u.Role == models.RoleAdmin {
			if err := ensureAnotherAdmin(tx, id); err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.User{}, id).Error; err != nil {
			return err
		}
		return activity.Record(tx, actorID, activity.UserChange, fmt.Sprintf("Deleted user '%s'", u.Username))
	})
}

// ChangePassword is the self-service path and needs the current password.
func (s *Service) ChangePassword(ctx context.Context, id uint, current, next string) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !CheckPassword(u.PasswordHash, current) {
		return ErrWrongPassword
	}
	return s.setPassword(ctx, id, id, next)
}

// ResetPassword is the admin path and skips the current-password check.
func (s *Service) ResetPassword(ctx context.Context, actorID, id uint, next string) error {
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}
	return s.setPassword(ctx, actorID, id, next)
}

// ResetAdminPassword restores access to the seeded admin account from the CLI.
func (s *Service) ResetAdminPassword(ctx context.Context, next string) error {
	var u models.User
	err := s.store.DB().WithContext(ctx).Where("username = ?", "admin").First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	return s.setPassword(ctx, 0, u.ID, next)
}

func (s *Service) setPassword(ctx context.Context, actorID, id uint, next string) error {
	if next == "" {
		return ErrEmptyPassword
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", id).Update("password_hash", hash).Error; err != nil {
			return err
		}
		return activity.Record(tx, actorID, activity.UserChange, fmt.Sprintf("Password changed for user ID %d", id))
	})
}

func (s *Service) usernameTaken(ctx context.Context, username string, exceptID uint) (bool, error) {
	var n int64
	err := s.store.DB().WithContext(ctx).Model(&models.User{}).
		Where("username = ? AND id <> ?", username, exceptID).
		Count(&n).Error
	return n > 0, err
}

func ensureAnotherAdmin(tx *gorm.DB, exceptID uint) error {
	var n int64
	if err := tx.Model(&models.User{}).Where("role = ? AND id <> ?", models.RoleAdmin, exceptID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrLastAdmin
	}
	return nil
}
