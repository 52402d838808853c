package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingEmail      = errors.New("email is required")
	errMissingPassword   = errors.New("password is required")
	noOpLogger           = zap.NewNop()
)

var (
	// ErrEmailTaken indicates the address is already registered.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrInvalidCredentials indicates a failed email/password check.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
)

const minPasswordLength = 8

// ServiceError wraps a failure with a stable operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew   = "users.service.new"
	opRegister     = "users.register"
	opAuthenticate = "users.authenticate"
	opGetAccount   = "users.get_account"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues identifiers for new accounts.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig carries the dependencies for account management.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service manages account registration and credential checks.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, displayName, password string) (Account, error) {
	if s.db == nil {
		return Account{}, newServiceError(opRegister, "missing_database", errMissingDatabase)
	}
	email = normalizeEmail(email)
	if email == "" {
		return Account{}, newServiceError(opRegister, "missing_email", errMissingEmail)
	}
	if len(password) < minPasswordLength {
		return Account{}, newServiceError(opRegister, "password_too_short", errMissingPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logError(opRegister, "hash_failed", err)
		return Account{}, newServiceError(opRegister, "hash_failed", err)
	}

	userID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opRegister, "id_generation_failed", err)
		return Account{}, newServiceError(opRegister, "id_generation_failed", err)
	}

	account := Account{
		UserID:       userID,
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Account
		err := tx.Where("email = ?", email).Take(&existing).Error
		if err == nil {
			return ErrEmailTaken
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&account).Error
	})
	if txErr != nil {
		if errors.Is(txErr, ErrEmailTaken) {
			return Account{}, newServiceError(opRegister, "email_taken", txErr)
		}
		s.logError(opRegister, "insert_failed", txErr)
		return Account{}, newServiceError(opRegister, "insert_failed", txErr)
	}

	return account, nil
}

// Authenticate checks an email/password pair and returns the account. The
// bcrypt comparison runs even for unknown addresses so both rejection paths
// cost roughly the same.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	if s.db == nil {
		return Account{}, newServiceError(opAuthenticate, "missing_database", errMissingDatabase)
	}
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Account{}, newServiceError(opAuthenticate, "invalid_credentials", ErrInvalidCredentials)
	}

	var account Account
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
		return Account{}, newServiceError(opAuthenticate, "invalid_credentials", ErrInvalidCredentials)
	}
	if err != nil {
		s.logError(opAuthenticate, "query_failed", err)
		return Account{}, newServiceError(opAuthenticate, "query_failed", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return Account{}, newServiceError(opAuthenticate, "invalid_credentials", ErrInvalidCredentials)
	}

	return account, nil
}

// GetAccount returns an account by id.
func (s *Service) GetAccount(ctx context.Context, userID string) (Account, error) {
	if s.db == nil {
		return Account{}, newServiceError(opGetAccount, "missing_database", errMissingDatabase)
	}

	var account Account
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&account).Error
	if err != nil {
		return Account{}, newServiceError(opGetAccount, "query_failed", err)
	}
	return account, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("users service error", attrs...)
}
