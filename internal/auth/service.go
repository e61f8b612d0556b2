package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/jobbridge/backend/internal/domain"
	"github.com/jobbridge/backend/internal/models"
)

// ErrDuplicateIdentifier is returned when registering with an email or phone
// that already exists.
var ErrDuplicateIdentifier = errors.New("email or phone already registered")

// ErrInvalidCredentials covers bad password, unknown identifier and bad OTP.
// The message is deliberately the same for all three.
var ErrInvalidCredentials = errors.New("invalid credentials")

const otpTTL = 10 * time.Minute

type RegisterInput struct {
	Name          string
	Email         string
	Phone         string
	Password      string
	Role          string
	LGA           string
	Neighbourhood string
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, identifier, password string) (*models.User, string, error)
	RequestOTP(ctx context.Context, identifier string) (string, error)
	VerifyOTP(ctx context.Context, identifier, code string) (*models.User, string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

type service struct {
	repo   *Repository
	secret []byte
}

func NewService(repo *Repository) *service {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "supersecretmvp"
	}
	return &service{repo: repo, secret: []byte(secret)}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	if in.Name == "" || in.Password == "" {
		return nil, "", domain.Validation("name and password are required")
	}
	if in.Email == "" && in.Phone == "" {
		return nil, "", domain.Validation("email or phone is required")
	}
	if in.Role != models.RoleWorker && in.Role != models.RolePoster {
		return nil, "", domain.Validation("role must be worker or poster")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	u := &models.User{
		ID:            uuid.New(),
		Name:          in.Name,
		Email:         in.Email,
		Phone:         in.Phone,
		Role:          in.Role,
		LGA:           in.LGA,
		Neighbourhood: in.Neighbourhood,
		PasswordHash:  string(hash),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, "", ErrDuplicateIdentifier
		}
		return nil, "", err
	}
	token, err := s.issueToken(u.ID, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *service) Login(ctx context.Context, identifier, password string) (*models.User, string, error) {
	u, err := s.repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, "", err
	}
	if u == nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.issueToken(u.ID, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// RequestOTP generates a fresh 6-digit code valid for ten minutes and returns
// it to the caller. SMS delivery is out of scope; the handler echoes the code
// in development mode only.
func (s *service) RequestOTP(ctx context.Context, identifier string) (string, error) {
	u, err := s.repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", domain.NotFound("user not found")
	}
	code, err := generateOTP()
	if err != nil {
		return "", err
	}
	if err := s.repo.UpsertOTP(ctx, u.ID, code, time.Now().Add(otpTTL)); err != nil {
		return "", err
	}
	return code, nil
}

func (s *service) VerifyOTP(ctx context.Context, identifier, code string) (*models.User, string, error) {
	u, err := s.repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, "", err
	}
	if u == nil {
		return nil, "", ErrInvalidCredentials
	}
	ok, err := s.repo.ConsumeOTP(ctx, u.ID, code, time.Now())
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.issueToken(u.ID, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
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
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
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

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
