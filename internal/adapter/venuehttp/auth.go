// Package venuehttp implements a venue-neutral REST adapter: HMAC request
// signing, token-bucket rate limiting, and a pagination.PageFetcher for
// bars (BarFetcher) driven through the shared pagination core.
package venuehttp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// Credentials is the API key triplet used to sign authenticated requests.
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
}

// HMACSigner signs "(timestamp, method, path, body)" with the adapter's API
// secret, producing the header set most venue REST APIs expect: API-KEY,
// API-PASSPHRASE, API-TIMESTAMP, API-SIGN.
type HMACSigner struct {
	creds Credentials
}

// NewHMACSigner constructs a signer from credentials.
func NewHMACSigner(creds Credentials) *HMACSigner {
	return &HMACSigner{creds: creds}
}

// HasCredentials reports whether every credential field is populated.
func (s *HMACSigner) HasCredentials() bool {
	return s.creds.APIKey != "" && s.creds.APISecret != "" && s.creds.Passphrase != ""
}

// Sign produces the authenticated-request header set for method/path/body.
func (s *HMACSigner) Sign(method, path, body string) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	sig, err := s.sign(timestamp, method, path, body)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	return map[string]string{
		"API-KEY":        s.creds.APIKey,
		"API-PASSPHRASE": s.creds.Passphrase,
		"API-TIMESTAMP":  timestamp,
		"API-SIGN":       sig,
	}, nil
}

// LoginPayload produces the {op: login, args: [...]} body signed against
// /users/self/verify, per the WS authentication contract.
func (s *HMACSigner) LoginPayload() (map[string]any, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	sig, err := s.sign(timestamp, "GET", "/users/self/verify", "")
	if err != nil {
		return nil, fmt.Errorf("sign login: %w", err)
	}
	return map[string]any{
		"op": "login",
		"args": []map[string]string{{
			"apiKey":     s.creds.APIKey,
			"passphrase": s.creds.Passphrase,
			"timestamp":  timestamp,
			"sign":       sig,
		}},
	}, nil
}

func (s *HMACSigner) sign(timestamp, method, path, body string) (string, error) {
	message := timestamp + method + path + body
	mac := hmac.New(sha256.New, []byte(s.creds.APISecret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
