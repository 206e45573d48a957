package bridge

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCredentialsFile(t *testing.T, fields map[string]string) string {
	t.Helper()
	data, err := json.Marshal(fields)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "service-account.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func testKeyPEM(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	return string(pem.EncodeToMemory(block)), key
}

func TestLoadServiceCredential(t *testing.T) {
	pemKey, key := testKeyPEM(t)
	path := writeCredentialsFile(t, map[string]string{
		"type":           "service_account",
		"project_id":     "demo-project",
		"private_key_id": "k1",
		"private_key":    pemKey,
		"client_email":   "bridge@demo-project.iam.gserviceaccount.com",
	})

	cred, err := LoadServiceCredential(path)
	require.NoError(t, err)

	assert.Equal(t, "demo-project", cred.ProjectID)
	assert.Equal(t, "bridge@demo-project.iam.gserviceaccount.com", cred.ClientEmail)
	assert.Equal(t, "k1", cred.PrivateKeyID)
	assert.Equal(t, key.PublicKey, *cred.PublicKey())
}

func TestLoadServiceCredentialErrors(t *testing.T) {
	pemKey, _ := testKeyPEM(t)

	tests := []struct {
		name   string
		fields map[string]string
	}{
		{
			name: "missing client_email",
			fields: map[string]string{
				"type":        "service_account",
				"private_key": pemKey,
			},
		},
		{
			name: "missing private_key",
			fields: map[string]string{
				"type":         "service_account",
				"client_email": "bridge@demo-project.iam.gserviceaccount.com",
			},
		},
		{
			name: "malformed private_key",
			fields: map[string]string{
				"type":         "service_account",
				"client_email": "bridge@demo-project.iam.gserviceaccount.com",
				"private_key":  "not a pem block",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCredentialsFile(t, tt.fields)
			_, err := LoadServiceCredential(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadServiceCredentialMissingFile(t *testing.T) {
	_, err := LoadServiceCredential(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadServiceCredentialMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service-account.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := LoadServiceCredential(path)
	assert.Error(t, err)
}
