package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	tokenAlg = "HS256"
	tokenTyp = "JWT"
)

// Token decode failure kinds. The authorization middleware collapses all of
// them into one client-visible 401; they stay distinct for logs and tests.
var (
	ErrTokenStructure = errors.New("invalid token structure")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenPayload   = errors.New("invalid token payload")
	ErrTokenHeader    = errors.New("unsupported token header")
	ErrTokenExpired   = errors.New("token expired")
)

type tokenHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// TokenCodec signs and verifies compact bearer tokens in the standard
// three-part JWT wire format (HS256 only). The secret is injected so tests
// and deployments can run with distinct keys.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secret []byte) *TokenCodec {
	return &TokenCodec{secret: secret, now: time.Now}
}

// Encode merges claims with iat/exp timestamps and returns the signed token.
// Caller-supplied iat/exp values are overwritten.
func (c *TokenCodec) Encode(claims map[string]any, ttl time.Duration) (string, error) {
	headerJSON, err := json.Marshal(tokenHeader{Alg: tokenAlg, Typ: tokenTyp})
	if err != nil {
		return "", err
	}

	issuedAt := c.now().Unix()
	payload := make(map[string]any, len(claims)+2)
	for k, v := range claims {
		payload[k] = v
	}
	payload["iat"] = issuedAt
	payload["exp"] = issuedAt + int64(ttl/time.Second)

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	signingInput := base64URLEncode(headerJSON) + "." + base64URLEncode(payloadJSON)
	return signingInput + "." + base64URLEncode(c.sign(signingInput)), nil
}

// Decode verifies the signature, header, and expiry of token and returns its
// claims. Signature verification happens before any payload parsing so a
// forged token never reaches the JSON decoder.
func (c *TokenCodec) Decode(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrTokenStructure
	}

	signingInput := parts[0] + "." + parts[1]
	expected := c.sign(signingInput)
	provided, err := base64URLDecode(parts[2])
	if err != nil {
		return nil, ErrTokenSignature
	}
	if len(provided) != len(expected) || !hmac.Equal(provided, expected) {
		return nil, ErrTokenSignature
	}

	headerJSON, err := base64URLDecode(parts[0])
	if err != nil {
		return nil, ErrTokenPayload
	}
	payloadJSON, err := base64URLDecode(parts[1])
	if err != nil {
		return nil, ErrTokenPayload
	}

	var header tokenHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, ErrTokenPayload
	}
	var claims map[string]any
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, ErrTokenPayload
	}

	if header.Alg != tokenAlg || header.Typ != tokenTyp {
		return nil, ErrTokenHeader
	}

	if exp, ok := claims["exp"].(float64); ok && int64(exp) <= c.now().Unix() {
		return nil, ErrTokenExpired
	}

	return claims, nil
}

func (c *TokenCodec) sign(signingInput string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(signingInput))
	return mac.Sum(nil)
}

func base64URLEncode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// base64URLDecode tolerates stripped padding by re-padding to a multiple of
// four before decoding.
func base64URLDecode(s string) ([]byte, error) {
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return base64.URLEncoding.DecodeString(s)
}
