// Package secrets resolve as credenciais do CRM e do banco a partir do AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrAccessDenied   = errors.New("access denied to secret")
	ErrSecretEmpty    = errors.New("secret value is empty")
	ErrMissingKey     = errors.New("secret is missing a required key")
)

// ManagerAPI é o subconjunto do client do Secrets Manager usado pelo Resolver.
type ManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type Resolver struct {
	api            ManagerAPI
	logger         *zap.Logger
	zohoSecret     string
	databaseSecret string
}

func NewResolver(api ManagerAPI, logger *zap.Logger, zohoSecret, databaseSecret string) *Resolver {
	return &Resolver{
		api:            api,
		logger:         logger,
		zohoSecret:     zohoSecret,
		databaseSecret: databaseSecret,
	}
}

// NewResolverFromConfig monta o client real do Secrets Manager.
func NewResolverFromConfig(cfg aws.Config, logger *zap.Logger, zohoSecret, databaseSecret string) *Resolver {
	return NewResolver(secretsmanager.NewFromConfig(cfg), logger, zohoSecret, databaseSecret)
}

// GetSecret busca e decodifica o JSON guardado em SecretString.
func (r *Resolver) GetSecret(ctx context.Context, name string) (map[string]any, error) {
	r.logger.Debug("fetching secret", zap.String("secret_name", name))

	out, err := r.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return nil, classify(name, err)
	}

	raw := aws.ToString(out.SecretString)
	if raw == "" {
		return nil, eris.Wrapf(ErrSecretEmpty, "secret %s", name)
	}

	var secret map[string]any
	if err := json.Unmarshal([]byte(raw), &secret); err != nil {
		return nil, eris.Wrapf(err, "secret %s is not a JSON object", name)
	}
	return secret, nil
}

// ZohoCredentials devolve refresh_token, client_id e client_secret.
func (r *Resolver) ZohoCredentials(ctx context.Context) (ZohoCredentials, error) {
	secret, err := r.GetSecret(ctx, r.zohoSecret)
	if err != nil {
		return ZohoCredentials{}, err
	}

	var creds ZohoCredentials
	if creds.RefreshToken, err = requireString(secret, r.zohoSecret, "refresh_token"); err != nil {
		return ZohoCredentials{}, err
	}
	if creds.ClientID, err = requireString(secret, r.zohoSecret, "client_id"); err != nil {
		return ZohoCredentials{}, err
	}
	if creds.ClientSecret, err = requireString(secret, r.zohoSecret, "client_secret"); err != nil {
		return ZohoCredentials{}, err
	}
	return creds, nil
}

// DatabaseCredentials devolve username, password, host e port do banco de documentos.
func (r *Resolver) DatabaseCredentials(ctx context.Context) (DatabaseCredentials, error) {
	secret, err := r.GetSecret(ctx, r.databaseSecret)
	if err != nil {
		return DatabaseCredentials{}, err
	}

	var creds DatabaseCredentials
	if creds.Username, err = requireString(secret, r.databaseSecret, "username"); err != nil {
		return DatabaseCredentials{}, err
	}
	if creds.Password, err = requireString(secret, r.databaseSecret, "password"); err != nil {
		return DatabaseCredentials{}, err
	}
	if creds.Host, err = requireString(secret, r.databaseSecret, "host"); err != nil {
		return DatabaseCredentials{}, err
	}
	if creds.Port, err = requireString(secret, r.databaseSecret, "port"); err != nil {
		return DatabaseCredentials{}, err
	}
	return creds, nil
}

// requireString aceita string ou número (port costuma vir como 27017).
func requireString(secret map[string]any, name, key string) (string, error) {
	v, ok := secret[key]
	if !ok || v == nil {
		return "", eris.Wrapf(ErrMissingKey, "secret %s: %s", name, key)
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case float64:
		return fmt.Sprintf("%.0f", val), nil
	default:
		return fmt.Sprint(val), nil
	}
}

func classify(name string, err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return eris.Wrapf(ErrSecretNotFound, "secret %s", name)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ResourceNotFoundException":
			return eris.Wrapf(ErrSecretNotFound, "secret %s", name)
		case "AccessDeniedException":
			return eris.Wrapf(ErrAccessDenied, "secret %s", name)
		}
	}
	return eris.Wrapf(err, "failed to get secret %s", name)
}
