package bridge

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredential(t *testing.T) *ServiceCredential {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return NewServiceCredential("demo-project", "bridge@demo-project.iam.gserviceaccount.com", key)
}

type fakeResolver struct {
	userID string
	err    error
}

func (f *fakeResolver) ResolveUserID(ctx context.Context, accessToken string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.userID, nil
}

func newTestService(t *testing.T, resolver UserResolver) *Service {
	t.Helper()
	return NewService(ServiceParams{
		Credential: testCredential(t),
		Resolver:   resolver,
	})
}

func TestCreateTokenSuccess(t *testing.T) {
	svc := newTestService(t, &fakeResolver{userID: "80351110224678912"})

	result := svc.CreateToken(context.Background(), "ptk_xyz")
	require.True(t, result.OK(), "expected success, got reason %q", result.Reason)
	assert.NotEmpty(t, result.CustomToken)
	assert.Empty(t, result.Reason)

	parsed, err := jwt.Parse(result.CustomToken,
		func(tok *jwt.Token) (interface{}, error) { return svc.cred.PublicKey(), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
	)
	require.NoError(t, err)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "80351110224678912", claims["uid"])
	assert.Equal(t, CustomTokenAudience, claims["aud"])
	assert.Equal(t, svc.cred.ClientEmail, claims["iss"])
	assert.Equal(t, svc.cred.ClientEmail, claims["sub"])
}

func TestCreateTokenLifetime(t *testing.T) {
	svc := newTestService(t, &fakeResolver{userID: "80351110224678912"})
	minted := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return minted }

	result := svc.CreateToken(context.Background(), "ptk_xyz")
	require.True(t, result.OK())

	parsed, _, err := jwt.NewParser().ParseUnverified(result.CustomToken, jwt.MapClaims{})
	require.NoError(t, err)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.EqualValues(t, minted.Unix(), claims["iat"])
	assert.EqualValues(t, minted.Add(time.Hour).Unix(), claims["exp"])
}

func TestCreateTokenResolveFailure(t *testing.T) {
	svc := newTestService(t, &fakeResolver{err: fmt.Errorf("user info request failed with status 401")})

	result := svc.CreateToken(context.Background(), "ptk_revoked")
	assert.False(t, result.OK())
	assert.Empty(t, result.CustomToken, "error result must not carry a token")
	assert.NotEmpty(t, result.Reason)
}

func TestCreateTokenEmptyAccessToken(t *testing.T) {
	svc := newTestService(t, &fakeResolver{userID: "80351110224678912"})

	result := svc.CreateToken(context.Background(), "")
	assert.False(t, result.OK())
	assert.Empty(t, result.CustomToken)
}

func TestMintCustomTokenEmptyUserID(t *testing.T) {
	svc := newTestService(t, &fakeResolver{})

	_, err := svc.MintCustomToken("")
	assert.Error(t, err)
}

func TestResultNeverBothFields(t *testing.T) {
	tests := []struct {
		name     string
		resolver UserResolver
		token    string
	}{
		{"success", &fakeResolver{userID: "80351110224678912"}, "ptk_xyz"},
		{"resolve failure", &fakeResolver{err: fmt.Errorf("boom")}, "ptk_xyz"},
		{"empty token", &fakeResolver{userID: "80351110224678912"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.resolver)
			result := svc.CreateToken(context.Background(), tt.token)
			if result.CustomToken != "" && result.Reason != "" {
				t.Errorf("result has both token and reason: %+v", result)
			}
			if result.CustomToken == "" && result.Reason == "" {
				t.Errorf("result has neither token nor reason")
			}
		})
	}
}
