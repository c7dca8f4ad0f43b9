package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/example/campus-bookings/internal/persistence"
)

// UserRepository captures the persistence operations needed by the user
// service.
type UserRepository interface {
	CreateUser(ctx context.Context, creds UserCredentials) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (UserCredentials, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	DeleteUser(ctx context.Context, id string, reference time.Time) error
	ListUsers(ctx context.Context) ([]User, error)
}

// UserService orchestrates validation, authorization, and persistence for
// campus accounts.
type UserService struct {
	users          UserRepository
	passwordParams Argon2idParams
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies with a specified logger.
func NewUserServiceWithLogger(users UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:          users,
		passwordParams: DefaultArgon2idParams,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Register creates a self-service account. Registered accounts always carry
// the student role; elevated roles require an administrator.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Register")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user registered")
	}()

	user, err = s.createUser(ctx, UserInput{
		Email:       input.Email,
		DisplayName: input.DisplayName,
		Role:        RoleStudent,
		StudentID:   input.StudentID,
		Password:    input.Password,
	})
	return
}

// CreateUser validates input and persists a new user for administrators.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateUser",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	user, err = s.createUser(ctx, params.Input)
	return
}

func (s *UserService) createUser(ctx context.Context, input UserInput) (User, error) {
	normalized := normalizeUserInput(input)
	vErr := validateUserInput(normalized, true)
	if vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := CreatePasswordHash(normalized.Password, s.passwordParams)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	createdAt := s.now().UTC()
	creds := UserCredentials{
		User: User{
			ID:          s.idGenerator(),
			Email:       normalized.Email,
			DisplayName: normalized.DisplayName,
			Role:        normalized.Role,
			StudentID:   normalized.StudentID,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		},
		PasswordHash: hash,
	}

	persisted, err := s.users.CreateUser(ctx, creds)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return persisted, nil
}

// UpdateUser updates profile fields. Administrators may update anyone; other
// users may update their own profile but not their role.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	if !params.Principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}
	if params.UserID != params.Principal.UserID && !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	var existing User
	existing, err = s.users.GetUser(ctx, params.UserID)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	normalized := normalizeUserInput(params.Input)
	vErr := validateUserInput(normalized, false)
	if normalized.Role != existing.Role && !params.Principal.IsAdmin() {
		vErr.add("role", "role can only be changed by an administrator")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Email = normalized.Email
	updated.DisplayName = normalized.DisplayName
	updated.Role = normalized.Role
	updated.StudentID = normalized.StudentID
	updated.UpdatedAt = s.now().UTC()

	user, err = s.users.UpdateUser(ctx, updated)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	return
}

// ChangePassword rotates a user's password. Users must present their current
// password; administrators may reset other accounts without it.
func (s *UserService) ChangePassword(ctx context.Context, params ChangePasswordParams) (err error) {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "ChangePassword",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change password", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password changed")
	}()

	if !params.Principal.Authenticated() {
		return ErrUnauthenticated
	}
	ownAccount := params.UserID == params.Principal.UserID
	if !ownAccount && !params.Principal.IsAdmin() {
		return ErrUnauthorized
	}

	vErr := &ValidationError{}
	validatePassword(params.NewPassword, vErr)
	if vErr.HasErrors() {
		return vErr
	}

	existing, err := s.users.GetUser(ctx, params.UserID)
	if err != nil {
		return mapUserRepoError(err)
	}

	if ownAccount {
		creds, lookupErr := s.users.GetUserByEmail(ctx, existing.Email)
		if lookupErr != nil {
			return mapUserRepoError(lookupErr)
		}
		if verifyErr := VerifyPassword(creds.PasswordHash, params.CurrentPassword); verifyErr != nil {
			return ErrInvalidCredentials
		}
	}

	hash, err := CreatePasswordHash(params.NewPassword, s.passwordParams)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := s.users.UpdatePassword(ctx, params.UserID, hash, s.now().UTC()); err != nil {
		return mapUserRepoError(err)
	}
	return nil
}

// DeleteUser removes an account when no active future bookings depend on it.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "DeleteUser",
		"principal_id", principal.UserID,
		"user_id", userID,
	)

	if err := s.users.DeleteUser(ctx, userID, normalizeDate(s.now())); err != nil {
		err = mapUserRepoError(err)
		logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "user deleted")
	return nil
}

// GetUser fetches a single account. Administrators may fetch anyone; other
// users only themselves.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}
	if !principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}
	if userID != principal.UserID && !principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	user, err = s.users.GetUser(ctx, userID)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}
	return
}

// ListUsers enumerates all accounts for administrators, ordered by email.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) (users []User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListUsers",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list users", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(users)).InfoContext(ctx, "users listed")
	}()

	if !principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	var raw []User
	raw, err = s.users.ListUsers(ctx)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	users = make([]User, len(raw))
	copy(users, raw)

	sort.Slice(users, func(i, j int) bool {
		if strings.EqualFold(users[i].Email, users[j].Email) {
			return users[i].ID < users[j].ID
		}
		return strings.ToLower(users[i].Email) < strings.ToLower(users[j].Email)
	})

	return
}

func normalizeUserInput(input UserInput) UserInput {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	return UserInput{
		Email:       email,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Role:        input.Role,
		StudentID:   normalizeOptionalString(input.StudentID),
		Password:    input.Password,
	}
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validateUserInput(input UserInput, requirePassword bool) *ValidationError {
	vErr := &ValidationError{}

	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}
	if input.DisplayName == "" {
		vErr.add("display_name", "display name is required")
	}
	if !input.Role.Valid() {
		vErr.add("role", "unknown role")
	}
	if input.Role == RoleStudent && input.StudentID == nil {
		vErr.add("student_id", "student id is required for students")
	}
	if requirePassword {
		validatePassword(input.Password, vErr)
	}

	return vErr
}

func validatePassword(password string, vErr *ValidationError) {
	if len(password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}
}

func mapUserRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrInUse
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
