package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"meal-order-api/models"
	"meal-order-api/notify"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// OTPTTL is how long a password reset code stays valid
const OTPTTL = 10 * time.Minute

type AccountService struct {
	db       *gorm.DB
	notifier *notify.Notifier
	log      *logrus.Logger
	now      func() time.Time
	newCode  func() (string, error)
}

func NewAccountService(db *gorm.DB, n *notify.Notifier, log *logrus.Logger) *AccountService {
	return &AccountService{db: db, notifier: n, log: log, now: time.Now, newCode: randomOTP}
}

func randomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

type SignupInput struct {
	FullName        string
	PhoneNumber     string
	Email           string
	Password        string
	ConfirmPassword string
}

func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if in.Password != in.ConfirmPassword {
		return nil, invalidField("confirm_password", "Passwords do not match")
	}
	email := normalizeEmail(in.Email)
	phone := strings.TrimSpace(in.PhoneNumber)

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, newKind(ErrConflict, "Email already registered")
	}
	if err := s.db.Model(&models.User{}).Where("phone_number = ?", phone).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check phone number: %w", err)
	}
	if count > 0 {
		return nil, newKind(ErrConflict, "Phone number already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := models.User{
		FullName:     strings.TrimSpace(in.FullName),
		Email:        email,
		PhoneNumber:  phone,
		PasswordHash: string(hash),
		Role:         models.RoleCustomer,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.notifier.Welcome(ctx, &user)
	return &user, nil
}

func (s *AccountService) Signin(email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *AccountService) Profile(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// ListUsers returns every account, optionally only those with role
func (s *AccountService) ListUsers(role models.UserRole) ([]models.User, error) {
	var users []models.User
	q := s.db.Order("id")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ProfileUpdate holds the editable fields; email is read-only
type ProfileUpdate struct {
	FullName    *string
	PhoneNumber *string
}

func (s *AccountService) UpdateProfile(userID uint, in ProfileUpdate) (*models.User, error) {
	user, err := s.Profile(userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, invalidField("full_name", "must not be blank")
		}
		updates["full_name"] = name
	}
	if in.PhoneNumber != nil {
		phone := strings.TrimSpace(*in.PhoneNumber)
		if phone == "" {
			return nil, invalidField("phone_number", "must not be blank")
		}
		var count int64
		if err := s.db.Model(&models.User{}).Where("phone_number = ? AND id <> ?", phone, userID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check phone number: %w", err)
		}
		if count > 0 {
			return nil, newKind(ErrConflict, "Phone number already registered")
		}
		updates["phone_number"] = phone
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.Profile(userID)
}

func (s *AccountService) setPassword(tx *gorm.DB, userID uint, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return tx.Model(&models.User{}).Where("id = ?", userID).Update("password_hash", string(hash)).Error
}

func (s *AccountService) ChangePassword(userID uint, oldPassword, newPassword, confirm string) error {
	user, err := s.Profile(userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return invalidField("old_password", "Old password is incorrect")
	}
	if newPassword != confirm {
		return invalidField("confirm_password", "Passwords do not match")
	}
	return s.setPassword(s.db, userID, newPassword)
}

// RequestPasswordReset mails a fresh code and voids older ones. Unknown
// emails succeed silently so callers cannot probe for accounts.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	var user models.User
	err := s.db.Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.WithField("email", email).Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PasswordResetOTP{}).
			Where("user_id = ? AND used = ?", user.ID, false).
			Update("used", true).Error; err != nil {
			return err
		}
		return tx.Create(&models.PasswordResetOTP{
			UserID:    user.ID,
			Code:      code,
			ExpiresAt: s.now().Add(OTPTTL),
		}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}

	if err := s.notifier.PasswordResetOTP(ctx, &user, code, OTPTTL); err != nil {
		s.log.WithFields(logrus.Fields{"user_id": user.ID, "error": err.Error()}).Error("password reset email failed")
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return nil
}

var errBadOTP = invalidField("otp_code", "Invalid or expired OTP")

func (s *AccountService) findOTP(tx *gorm.DB, email, code string) (*models.User, *models.PasswordResetOTP, error) {
	var user models.User
	if err := tx.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errBadOTP
		}
		return nil, nil, err
	}
	var otp models.PasswordResetOTP
	err := tx.Where("user_id = ? AND code = ? AND used = ?", user.ID, strings.TrimSpace(code), false).
		Order("id desc").First(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, errBadOTP
	}
	if err != nil {
		return nil, nil, err
	}
	if !otp.Valid(s.now()) {
		return nil, nil, errBadOTP
	}
	return &user, &otp, nil
}

// VerifyOTP checks a code without consuming it
func (s *AccountService) VerifyOTP(email, code string) error {
	_, _, err := s.findOTP(s.db, email, code)
	return err
}

// ResetPassword consumes the code and sets the new password
func (s *AccountService) ResetPassword(email, code, newPassword, confirm string) error {
	if newPassword != confirm {
		return invalidField("confirm_password", "Passwords do not match")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		user, otp, err := s.findOTP(tx, email, code)
		if err != nil {
			return err
		}
		if err := tx.Model(otp).Update("used", true).Error; err != nil {
			return err
		}
		return s.setPassword(tx, user.ID, newPassword)
	})
}
