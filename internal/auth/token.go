package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	relay_errors "relaychat/pkg/errors"
)

// Verifier is the adapter to the session collaborator: it turns a bearer
// token into a verified user id. The core trusts the id and performs no
// further credential checks.
type Verifier struct {
	secret []byte
}

type AccessClaims struct {
	jwt.RegisteredClaims
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates an HS256 access token and returns the user id
// carried in its subject.
func (v *Verifier) Verify(tokenString string) (int64, error) {
	if tokenString == "" {
		return 0, relay_errors.ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, relay_errors.ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		return 0, relay_errors.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return 0, relay_errors.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, relay_errors.ErrInvalidToken
	}
	return userID, nil
}

// Issue signs an access token for userID. Exists for tests and local
// tooling; production tokens come from the session collaborator.
func (v *Verifier) Issue(userID int64, ttl time.Duration) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
