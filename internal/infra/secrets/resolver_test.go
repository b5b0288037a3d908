package secrets

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockManagerAPI struct {
	getSecretValueFunc func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

func (m *mockManagerAPI) GetSecretValue(
	ctx context.Context,
	params *secretsmanager.GetSecretValueInput,
	optFns ...func(*secretsmanager.Options),
) (*secretsmanager.GetSecretValueOutput, error) {
	if m.getSecretValueFunc != nil {
		return m.getSecretValueFunc(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("GetSecretValue not implemented")
}

func secretsByName(values map[string]string) *mockManagerAPI {
	return &mockManagerAPI{
		getSecretValueFunc: func(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			v, ok := values[aws.ToString(params.SecretId)]
			if !ok {
				return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
			}
			return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
		},
	}
}

func TestGetSecretDecodesJSON(t *testing.T) {
	api := secretsByName(map[string]string{"app": `{"a":"b","n":1}`})
	r := NewResolver(api, zap.NewNop(), "zoho", "db")

	secret, err := r.GetSecret(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, "b", secret["a"])
	assert.Equal(t, float64(1), secret["n"])
}

func TestGetSecretNotFound(t *testing.T) {
	r := NewResolver(secretsByName(nil), zap.NewNop(), "zoho", "db")

	_, err := r.GetSecret(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestGetSecretAccessDenied(t *testing.T) {
	api := &mockManagerAPI{
		getSecretValueFunc: func(context.Context, *secretsmanager.GetSecretValueInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "nope"}
		},
	}
	r := NewResolver(api, zap.NewNop(), "zoho", "db")

	_, err := r.GetSecret(context.Background(), "locked")
	assert.True(t, errors.Is(err, ErrAccessDenied))
}

func TestGetSecretEmptyAndInvalid(t *testing.T) {
	api := secretsByName(map[string]string{"empty": "", "bad": "not-json"})
	r := NewResolver(api, zap.NewNop(), "zoho", "db")

	_, err := r.GetSecret(context.Background(), "empty")
	assert.True(t, errors.Is(err, ErrSecretEmpty))

	_, err = r.GetSecret(context.Background(), "bad")
	assert.Error(t, err)
}

func TestZohoCredentials(t *testing.T) {
	api := secretsByName(map[string]string{
		"zoho_crm_credentials": `{"refresh_token":"rt","client_id":"cid","client_secret":"cs"}`,
	})
	r := NewResolver(api, zap.NewNop(), "zoho_crm_credentials", "zohocrmmig")

	creds, err := r.ZohoCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ZohoCredentials{RefreshToken: "rt", ClientID: "cid", ClientSecret: "cs"}, creds)
}

func TestZohoCredentialsMissingKey(t *testing.T) {
	api := secretsByName(map[string]string{"zoho": `{"client_id":"cid","client_secret":"cs"}`})
	r := NewResolver(api, zap.NewNop(), "zoho", "db")

	_, err := r.ZohoCredentials(context.Background())
	assert.True(t, errors.Is(err, ErrMissingKey))
}

func TestDatabaseCredentialsAcceptsNumericPort(t *testing.T) {
	api := secretsByName(map[string]string{
		"zohocrmmig": `{"username":"u","password":"p","host":"docdb.local","port":27017}`,
	})
	r := NewResolver(api, zap.NewNop(), "zoho", "zohocrmmig")

	creds, err := r.DatabaseCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DatabaseCredentials{Username: "u", Password: "p", Host: "docdb.local", Port: "27017"}, creds)
}
