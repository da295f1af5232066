// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signing key pair for session tokens. Ed25519 keys are either generated
// fresh at startup (sessions die with the process) or loaded from disk.
var (
	signingKey ed25519.PrivateKey
	verifyKey  ed25519.PublicKey

	// TokenTTL is how long issued tokens stay valid; zero means no expiry.
	TokenTTL time.Duration
)

// Init generates a fresh key pair and reads TOKEN_TTL from the environment
// (a Go duration string; empty, "0" or "never" disables expiry).
func Init() error {
	var err error
	verifyKey, signingKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("generate session key pair: %w", err)
	}
	return parseTokenTTL()
}

// InitFromFiles loads a persistent ed25519 key pair, so tokens survive
// restarts.
func InitFromFiles(privatePath, publicPath string) error {
	priv, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}
	pub, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}
	signingKey = ed25519.PrivateKey(priv)
	verifyKey = ed25519.PublicKey(pub)
	return parseTokenTTL()
}

func parseTokenTTL() error {
	raw := os.Getenv("TOKEN_TTL")
	if raw == "" || raw == "0" || raw == "never" {
		TokenTTL = 0
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse TOKEN_TTL: %w", err)
	}
	TokenTTL = d
	return nil
}

// CreateJWT issues a signed token whose subject is the user id.
func CreateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
	}
	if TokenTTL > 0 {
		claims["exp"] = time.Now().Add(TokenTTL).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(signingKey)
}

// VerifyJWT validates a token string and returns its subject user id.
func VerifyJWT(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return verifyKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
