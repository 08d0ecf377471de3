package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret = "secret-de-pruebas-stock-ledger"
	issuer = "stock-ledger"
)

func TestVerify_DevuelveIdentidad(t *testing.T) {
	v, err := NewVerifier(secret, issuer)
	require.NoError(t, err)
	tok, err := Issue(secret, issuer, Identity{UserID: "u-1", WorkspaceID: "ws-1", Role: "operator"}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-1", WorkspaceID: "ws-1", Role: "operator"}, *id)
}

func TestVerify_SinWorkspace(t *testing.T) {
	v, err := NewVerifier(secret, "")
	require.NoError(t, err)
	tok, err := Issue(secret, issuer, Identity{UserID: "u-1", Role: "admin"}, time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(tok)
	assert.ErrorIs(t, err, ErrMissingWorkspace)
}

func TestVerify_Rechazos(t *testing.T) {
	v, err := NewVerifier(secret, issuer)
	require.NoError(t, err)
	valid := Identity{UserID: "u-1", WorkspaceID: "ws-1", Role: "admin"}

	expired, err := Issue(secret, issuer, valid, -time.Hour)
	require.NoError(t, err)
	otherIssuer, err := Issue(secret, "otro-emisor", valid, time.Hour)
	require.NoError(t, err)
	otherSecret, err := Issue("otro-secret", issuer, valid, time.Hour)
	require.NoError(t, err)
	noSubject, err := Issue(secret, issuer, Identity{WorkspaceID: "ws-1"}, time.Hour)
	require.NoError(t, err)

	// HS512 con el mismo secreto: solo se acepta HS256.
	hs512, err := gojwt.NewWithClaims(gojwt.SigningMethodHS512, Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "u-1",
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		WorkspaceID: "ws-1",
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	// Sin exp: los tokens deben caducar.
	noExp, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Issuer: issuer, Subject: "u-1"},
		WorkspaceID:      "ws-1",
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"expirado":      expired,
		"otro emisor":   otherIssuer,
		"otro secreto":  otherSecret,
		"sin sujeto":    noSubject,
		"algoritmo":     hs512,
		"sin caducidad": noExp,
		"basura":        "no.es.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(tok)
			assert.Error(t, err)
		})
	}
}

func TestNewVerifier_SecretVacio(t *testing.T) {
	_, err := NewVerifier("", issuer)
	assert.Error(t, err)

	_, err = Issue("", issuer, Identity{UserID: "u"}, time.Minute)
	assert.Error(t, err)
}
