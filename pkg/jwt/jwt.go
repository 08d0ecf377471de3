// Package jwt valida los tokens de acceso a la consola de stock. Los tokens los emite el
// proveedor de identidad; aquí solo se verifican y se traducen a una Identity.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingWorkspace el token es válido pero no trae workspace_id.
var ErrMissingWorkspace = errors.New("jwt: token sin workspace_id")

// Identity quién llama y sobre qué workspace opera.
type Identity struct {
	UserID      string
	WorkspaceID string
	Role        string // "admin" | "operator" | "viewer"
}

// Claims el usuario viaja en "sub"; workspace_id es el límite de tenant de todo el stock.
type Claims struct {
	jwt.RegisteredClaims
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role,omitempty"`
}

// Verifier valida firma HS256, expiración y, si se configuró, el emisor.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier construye el verificador. issuer vacío acepta cualquier emisor.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &Verifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}, nil
}

// Verify devuelve la identidad del token. Un token sin sujeto es inválido; uno sin
// workspace devuelve ErrMissingWorkspace.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("jwt: token sin sub")
	}
	if claims.WorkspaceID == "" {
		return nil, ErrMissingWorkspace
	}
	return &Identity{UserID: claims.Subject, WorkspaceID: claims.WorkspaceID, Role: claims.Role}, nil
}

// Issue firma un token para id con vigencia ttl. Lo usan las pruebas y las herramientas
// internas; en producción los tokens llegan del proveedor de identidad.
func Issue(secret, issuer string, id Identity, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		WorkspaceID: id.WorkspaceID,
		Role:        id.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
