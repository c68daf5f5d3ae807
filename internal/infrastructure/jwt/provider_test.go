package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-realtime-nosql/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeys(t *testing.T) (pubPath string, key *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPath = filepath.Join(t.TempDir(), "public_key.pem")
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0o600))
	return pubPath, key
}

func sign(t *testing.T, key *rsa.PrivateKey, claims jwt.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func TestProvider_Verify(t *testing.T) {
	pubPath, key := writeKeys(t)
	p, err := NewProvider(&config.Config{JWTPublicKeyPath: pubPath})
	require.NoError(t, err)

	tok := sign(t, key, &Claims{
		UserID:           "u1",
		Username:         "alice",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})

	claims, err := p.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestProvider_MissingPublicKey(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTPublicKeyPath: filepath.Join(t.TempDir(), "absent.pem")})
	assert.Error(t, err)
}

func TestProvider_Verify_Expired(t *testing.T) {
	pubPath, key := writeKeys(t)
	p, err := NewProvider(&config.Config{JWTPublicKeyPath: pubPath})
	require.NoError(t, err)

	tok := sign(t, key, &Claims{
		UserID:           "u1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})

	_, err = p.Verify(tok)
	assert.Error(t, err)
}

func TestProvider_Verify_NoSubject(t *testing.T) {
	pubPath, key := writeKeys(t)
	p, err := NewProvider(&config.Config{JWTPublicKeyPath: pubPath})
	require.NoError(t, err)

	tok := sign(t, key, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})

	_, err = p.Verify(tok)
	assert.Error(t, err)
}

func TestProvider_Verify_FallsBackToSubject(t *testing.T) {
	pubPath, key := writeKeys(t)
	p, err := NewProvider(&config.Config{JWTPublicKeyPath: pubPath})
	require.NoError(t, err)

	tok := sign(t, key, jwt.RegisteredClaims{
		Subject:   "u9",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	claims, err := p.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u9", claims.UserID)
}

func TestProvider_Verify_RejectsHMAC(t *testing.T) {
	pubPath, _ := writeKeys(t)
	p, err := NewProvider(&config.Config{JWTPublicKeyPath: pubPath})
	require.NoError(t, err)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = p.Verify(tok)
	assert.Error(t, err)
}
