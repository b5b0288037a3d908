// Package storage guarda snapshots, logs e relatórios em object storage (S3, MinIO ou memória).
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
)

var (
	// ErrNotFound indica que a chave não existe no bucket.
	ErrNotFound = errors.New("object not found")
	// ErrMissingCredentials indica que o backend não tem credenciais configuradas.
	ErrMissingCredentials = errors.New("storage credentials not available")
)

// ObjectStore é o contrato mínimo usado pelo job: gravar e ler objetos por chave.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// PutJSON serializa v e grava como application/json.
func PutJSON(ctx context.Context, store ObjectStore, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "failed to encode %s", key)
	}
	return store.Put(ctx, key, body, "application/json")
}

// GetJSON lê a chave e decodifica em v.
func GetJSON(ctx context.Context, store ObjectStore, key string, v any) error {
	body, err := store.Get(ctx, key)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(v); err != nil {
		return eris.Wrapf(err, "failed to decode %s", key)
	}
	return nil
}
