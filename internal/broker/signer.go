package broker

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Signer produces Bitget request signatures. The signed message is
// timestamp + METHOD + requestPath + body, HMAC-SHA256 with the API secret,
// base64 encoded. For GET requests the query string is part of requestPath.
type Signer struct {
	apiKey     string
	secretKey  string
	passphrase string
}

// NewSigner creates a new Signer.
func NewSigner(apiKey, secretKey, passphrase string) *Signer {
	return &Signer{
		apiKey:     apiKey,
		secretKey:  secretKey,
		passphrase: passphrase,
	}
}

// Sign returns the base64-encoded signature for one request.
func (s *Signer) Sign(timestamp, method, requestPath, body string) string {
	message := timestamp + method + requestPath + body
	mac := hmac.New(sha256.New, []byte(s.secretKey))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// APIKey returns the API key for request headers.
func (s *Signer) APIKey() string {
	return s.apiKey
}

// Passphrase returns the passphrase for request headers.
func (s *Signer) Passphrase() string {
	return s.passphrase
}
