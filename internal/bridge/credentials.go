package bridge

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceCredential is the parsed service-account key file used to sign
// custom tokens. Only the signing-relevant fields are retained.
type ServiceCredential struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`

	key *rsa.PrivateKey
}

// NewServiceCredential builds a credential from an already-parsed key. Used
// when the key does not come from a file on disk.
func NewServiceCredential(projectID, clientEmail string, key *rsa.PrivateKey) *ServiceCredential {
	return &ServiceCredential{
		Type:        "service_account",
		ProjectID:   projectID,
		ClientEmail: clientEmail,
		key:         key,
	}
}

// LoadServiceCredential reads and parses a service-account JSON key file.
func LoadServiceCredential(path string) (*ServiceCredential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var cred ServiceCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	if cred.ClientEmail == "" {
		return nil, fmt.Errorf("credentials file %s has no client_email", path)
	}
	if cred.PrivateKey == "" {
		return nil, fmt.Errorf("credentials file %s has no private_key", path)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cred.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse service credential private key: %w", err)
	}
	cred.key = key

	return &cred, nil
}

// PublicKey exposes the verification half of the signing key. The session
// establisher uses it to check custom tokens before redeeming them.
func (c *ServiceCredential) PublicKey() *rsa.PublicKey {
	return &c.key.PublicKey
}

// SignClaims signs a claims set with the credential's private key.
func (c *ServiceCredential) SignClaims(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.key)
}
