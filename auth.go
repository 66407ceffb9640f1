package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"inventory/models"
	"inventory/pkg/store"
)

var jwtSecret []byte

var (
	errEmailNotFound = errors.New("Email not found")
	errInvalidCode   = errors.New("Invalid or expired code")
)

const (
	loginCodeTTL    = 5 * time.Minute
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 30 * 24 * time.Hour
)

// now is swapped in tests.
var now = time.Now

// newLoginCode returns a random four digit code.
func newLoginCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// issueLoginCode stores a fresh code for the user with email and mails it.
// Only a bcrypt hash of the code is kept.
func issueLoginCode(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	user, err := firstUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", errEmailNotFound
		}
		return "", err
	}
	code, err := newLoginCode()
	if err != nil {
		return "", err
	}
	if err := setLoginCode(ctx, user, code, now().Add(loginCodeTTL)); err != nil {
		return "", err
	}
	if err := sender.SendCode(ctx, email, code); err != nil {
		return "", errors.Wrap(err, "send login code")
	}
	return code, nil
}

func firstUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return store.First(ctx, st.Users, "email", email)
}

func setLoginCode(ctx context.Context, user *models.User, code string, expiry time.Time) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.AuthCodeHash = hash
	user.AuthExpiry = &expiry
	return st.Users.Update(ctx, user)
}

// verifyLoginCode checks code against the pending one and consumes it.
func verifyLoginCode(ctx context.Context, email, code string) (*models.User, error) {
	user, err := firstUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errInvalidCode
		}
		return nil, err
	}
	if len(user.AuthCodeHash) == 0 || user.AuthExpiry == nil || now().After(*user.AuthExpiry) {
		return nil, errInvalidCode
	}
	if err := bcrypt.CompareHashAndPassword(user.AuthCodeHash, []byte(code)); err != nil {
		return nil, errInvalidCode
	}
	user.AuthCodeHash = nil
	user.AuthExpiry = nil
	if err := st.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// issueAccessToken signs a short lived JWT for user. The role is not part of
// the claims; it is read from the users table on every request.
func issueAccessToken(user *models.User, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(user.ID), 10),
		"email": user.Email,
		"exp":   now().Add(ttl).Unix(),
	})
	return token.SignedString(jwtSecret)
}

// parseAccessToken validates tokenString and returns the user id it names.
func parseAccessToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return 0, errors.New("invalid claims")
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return 0, errors.New("invalid claims")
	}
	return uint(id), nil
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(ctx context.Context, userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	rt := models.RefreshToken{UserID: userID, TokenHash: hashToken(token), ExpiresAt: now().Add(refreshTokenTTL)}
	if err := st.RefreshTokens.Create(ctx, &rt); err != nil {
		return "", err
	}
	return token, nil
}

// findRefreshTokenByRaw looks up the stored record of a raw refresh token.
func findRefreshTokenByRaw(ctx context.Context, token string) (*models.RefreshToken, error) {
	return store.First(ctx, st.RefreshTokens, "token_hash", hashToken(token))
}

// revokeRefreshTokens revokes every live refresh token of userID.
func revokeRefreshTokens(ctx context.Context, userID uint) (int, error) {
	tokens, err := st.RefreshTokens.ListByParent(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range tokens {
		if tokens[i].Revoked {
			continue
		}
		tokens[i].Revoked = true
		if err := st.RefreshTokens.Update(ctx, &tokens[i]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
