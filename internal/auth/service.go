package auth

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

// ErrDuplicateEmail is returned when registering with an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrInvalidCredentials is returned on login with a wrong email or password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidRole is returned when registering with a role other than
// client or freelancer.
var ErrInvalidRole = errors.New("invalid role")

// BonusGranter credits the signup bonus through the ledger; satisfied by
// credits.Service.
type BonusGranter interface {
	Credit(ctx context.Context, userID uuid.UUID, amount int, entryType, reason string) error
}

type Service interface {
	Register(ctx context.Context, email, password, name, role string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

type service struct {
	repo    *Repository
	credits BonusGranter
	secret  []byte
}

func NewService(repo *Repository, credits BonusGranter) *service {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "supersecretmvp"
	}
	return &service{repo: repo, credits: credits, secret: []byte(secret)}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Register creates the user and grants the signup bonus as a ledger entry,
// so a new user's balance is fully explained by their history.
func (s *service) Register(ctx context.Context, email, password, name, role string) (*models.User, error) {
	if role != models.UserRoleClient && role != models.UserRoleFreelancer {
		return nil, ErrInvalidRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.Create(ctx, email, string(hash), name, role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	if err := s.credits.Credit(ctx, u.ID, models.SignupBonusCredits, models.CreditEntryBonus, "Signup bonus"); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(u.ID, u.Role)
}

func (s *service) issueToken(userID uuid.UUID, role string) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}
