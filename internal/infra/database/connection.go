package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	_ "github.com/lib/pq" // Driver do Postgres
	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/xavierca1/zoho-lead-sync/internal/infra/secrets"
)

// ErrCADownload indica que o bundle de CA do DocumentDB não pôde ser baixado.
var ErrCADownload = errors.New("failed to download CA certificate")

// NewPostgresConnection abre a conexão e testa o Ping
func NewPostgresConnection(ctx context.Context, connString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, eris.Wrap(err, "failed to open postgres")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "postgres did not answer ping")
	}

	return db, nil
}

// BuildMongoURI monta a URI do DocumentDB: TLS com o bundle local e sem retryWrites,
// que o DocumentDB não suporta.
func BuildMongoURI(creds secrets.DatabaseCredentials, database, caBundlePath string) string {
	u := url.URL{
		Scheme: "mongodb",
		User:   url.UserPassword(creds.Username, creds.Password),
		Host:   fmt.Sprintf("%s:%s", creds.Host, creds.Port),
		Path:   "/" + database,
	}

	q := url.Values{}
	q.Set("tls", "true")
	q.Set("retryWrites", "false")
	if caBundlePath != "" {
		q.Set("tlsCAFile", caBundlePath)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// ConnectMongo conecta e faz Ping no primário.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second).
		// documentos aninhados viram bson.M, e não bson.D, ao decodificar em any
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, eris.Wrap(err, "failed to connect to document store")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, eris.Wrap(err, "document store did not answer ping")
	}
	return client, nil
}

// DownloadCACertificate baixa o bundle de CA para path. Qualquer status != 200 é fatal,
// assim como um corpo que não seja texto (página de erro de proxy, binário).
func DownloadCACertificate(ctx context.Context, httpClient *http.Client, bundleURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bundleURL, nil)
	if err != nil {
		return eris.Wrap(err, "failed to build CA request")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return eris.Wrapf(ErrCADownload, "%s: %v", bundleURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return eris.Wrapf(ErrCADownload, "HTTP status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "failed to read CA bundle")
	}

	if len(body) == 0 {
		return eris.Wrap(ErrCADownload, "empty CA bundle")
	}
	if mt := mimetype.Detect(body); !mt.Is("text/plain") {
		return eris.Wrapf(ErrCADownload, "unexpected CA bundle content type %s", mt.String())
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "failed to create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return eris.Wrapf(err, "failed to write CA bundle to %s", path)
	}
	return nil
}
