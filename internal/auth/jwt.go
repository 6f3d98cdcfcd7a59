package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenKind string

// EditToken grants write access to a single project.
const EditToken TokenKind = "edit"

var ErrInvalidToken = errors.New("invalid token")

type JWTManager struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
}

// EditClaims are the verified claims of an edit token.
type EditClaims struct {
	ProjectID string
	Version   int
	JTI       string
}

func NewJWTManager(privatePath, publicPath, issuer string) (*JWTManager, error) {
	privPem, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privPem)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubPem, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPem)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &JWTManager{
		privateKey: privKey,
		publicKey:  pubKey,
		issuer:     issuer,
	}, nil
}

// NewJWTManagerFromKeys builds a manager around an in-memory key pair.
func NewJWTManagerFromKeys(key *rsa.PrivateKey, issuer string) *JWTManager {
	return &JWTManager{privateKey: key, publicKey: &key.PublicKey, issuer: issuer}
}

// PublicKey returns the verification key.
func (m *JWTManager) PublicKey() *rsa.PublicKey {
	return m.publicKey
}

// IssueEditToken signs an edit token for a project at its current token version.
func (m *JWTManager) IssueEditToken(projectID string, version int, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)

	claims := jwt.MapClaims{
		"iss": m.issuer,
		"sub": projectID,
		"iat": now.Unix(),
		"exp": exp.Unix(),
		"jti": uuid.New().String(),
		"typ": string(EditToken),
		"ver": version,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tokenStr, err := token.SignedString(m.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenStr, exp, nil
}

// VerifyToken checks the RS256 signature, expiry and issuer, and returns the raw claims.
func (m *JWTManager) VerifyToken(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodRS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.publicKey, nil
	}, jwt.WithLeeway(5*time.Second), jwt.WithIssuer(m.issuer))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// VerifyEditToken verifies tokenStr and requires it to be an edit token.
func (m *JWTManager) VerifyEditToken(tokenStr string) (*EditClaims, error) {
	claims, err := m.VerifyToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if typ, _ := claims["typ"].(string); typ != string(EditToken) {
		return nil, fmt.Errorf("%w: not an edit token", ErrInvalidToken)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	ver, _ := claims["ver"].(float64)
	jti, _ := claims["jti"].(string)
	return &EditClaims{ProjectID: sub, Version: int(ver), JTI: jti}, nil
}
