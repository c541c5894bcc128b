package usecase

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iho/finledger/internal/domain"
)

// UserUseCase handles registration, sign-in and profiles.
type UserUseCase struct {
	txManager  TransactionManager
	locker     Locker
	userRepo   UserRepository
	outboxRepo OutboxRepository
	userIDGen  IDGenerator
	eventIDGen IDGenerator
	tokens     TokenIssuer
}

// NewUserUseCase creates a new user use case
func NewUserUseCase(
	txManager TransactionManager,
	locker Locker,
	userRepo UserRepository,
	outboxRepo OutboxRepository,
	userIDGen IDGenerator,
	eventIDGen IDGenerator,
	tokens TokenIssuer,
) *UserUseCase {
	return &UserUseCase{
		txManager:  txManager,
		locker:     locker,
		userRepo:   userRepo,
		outboxRepo: outboxRepo,
		userIDGen:  userIDGen,
		eventIDGen: eventIDGen,
		tokens:     tokens,
	}
}

// CreateUserInput represents input for creating a user
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
}

// CreateUser registers a user with a hashed password
func (uc *UserUseCase) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if err := domain.ValidateName(input.Name); err != nil {
		return nil, err
	}

	if err := domain.ValidateEmail(input.Email); err != nil {
		return nil, err
	}

	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	email := domain.NormalizeEmail(input.Email)

	hashedPassword, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Concurrent sign-ups with one email serialize here.
	if err := uc.locker.Lock(ctx, tx, emailLockKey(email)); err != nil {
		return nil, err
	}

	existing, err := uc.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyInUse
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &domain.User{
		ID:             uc.userIDGen.Generate(),
		Name:           input.Name,
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.userRepo.Create(ctx, tx, user); err != nil {
		return nil, err
	}

	if err := uc.outboxRepo.Create(ctx, tx, domain.NewUserCreatedEvent(uc.eventIDGen.Generate(), user)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return user.Sanitized(), nil
}

// AuthenticateInput represents authentication input
type AuthenticateInput struct {
	Email    string
	Password string
}

// Session is the result of a successful sign-in.
type Session struct {
	User  *domain.User
	Token string
}

// Authenticate verifies user credentials and issues a token
func (uc *UserUseCase) Authenticate(ctx context.Context, input AuthenticateInput) (*Session, error) {
	user, err := uc.userRepo.FindByEmail(ctx, domain.NormalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}

	// Unknown email and wrong password are indistinguishable to the caller.
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	if err := VerifyPassword(user.HashedPassword, input.Password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := uc.tokens.Generate(user)
	if err != nil {
		return nil, err
	}

	return &Session{User: user.Sanitized(), Token: token}, nil
}

// ShowProfile retrieves a user by ID
func (uc *UserUseCase) ShowProfile(ctx context.Context, id string) (*domain.User, error) {
	user, err := uc.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	return user.Sanitized(), nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a hash
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
