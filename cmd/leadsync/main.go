package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/config"
	"github.com/xavierca1/zoho-lead-sync/internal/entity"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/database"
	statushttp "github.com/xavierca1/zoho-lead-sync/internal/infra/http"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/http/handlers"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/integration/zoho"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/mail"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/metrics"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/notify"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/queue"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/runlog"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/secrets"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/storage"
	"github.com/xavierca1/zoho-lead-sync/internal/logger"
	"github.com/xavierca1/zoho-lead-sync/internal/usecase"
)

// preenchido via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "leadsync: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		log.Error("failed to load aws config", zap.Error(err))
		return fmt.Errorf("load aws config: %w", err)
	}

	// 1. Object storage: sem ele não há onde gravar o log do run
	store, err := newObjectStore(ctx, cfg, awsCfg)
	if err != nil {
		log.Error("failed to open object storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
		return err
	}

	// 2. Segredos
	resolver := secrets.NewResolverFromConfig(awsCfg, log, cfg.Zoho.CredentialsSecret, cfg.LeadStore.SecretName)

	// 3. Banco de leads: só conecta no START do pipeline
	leads, source := newLeadStore(cfg, resolver, log)
	defer leads.Close()

	// 4. Zoho CRM
	crm := zoho.NewClient(cfg.Zoho.APIURL, cfg.Zoho.AccountsURL, resolver, log,
		zoho.WithPageSize(cfg.Zoho.PageSize),
		zoho.WithHTTPClient(&http.Client{Timeout: cfg.Zoho.Timeout}),
	)

	runLog := runlog.New(store, log)
	recorder := metrics.NewRecorder()

	// 5. Notificadores
	notifiers, producer := newNotifiers(cfg, awsCfg, log)
	var rabbit atomic.Pointer[queue.RabbitMQ]
	defer func() {
		if r := rabbit.Load(); r != nil {
			r.Close()
		}
	}()

	setup := func(ctx context.Context) error {
		if err := leads.Open(ctx); err != nil {
			return err
		}
		if producer != nil {
			// sem broker o run segue; o aviso pelo RabbitMQ falha e vai para o log
			r, err := queue.NewRabbitMQ(cfg.Notify.RabbitMQURL)
			if err != nil {
				log.Error("rabbitmq unavailable", zap.Error(err))
				return nil
			}
			rabbit.Store(r)
			producer.Ch = r.Ch
		}
		return nil
	}

	// 6. UseCases
	now := time.Now
	pipeline := usecase.NewPipeline(
		usecase.NewExtractLeadsUseCase(crm, store, runLog, recorder, now, cfg.Zoho.MaxRecords, log),
		usecase.NewIncrementalLoadUseCase(leads, runLog, recorder, now, log),
		usecase.NewBackupDatabaseUseCase(leads, store, runLog, recorder, now, log),
		usecase.NewValidateUseCase(store, source, runLog, recorder, now, log),
		runLog,
		now,
		log,
		usecase.WithSetup(setup),
		usecase.WithNotifier(notifiers),
		usecase.WithMetrics(recorder),
	)

	// 7. Status server (opcional)
	var server *statushttp.Server
	if cfg.Status.Addr != "" {
		checks := map[string]handlers.Check{"lead_store": leads.Ping}
		if producer != nil {
			checks["rabbitmq"] = func(context.Context) error {
				r := rabbit.Load()
				if r == nil || r.Conn.IsClosed() {
					return fmt.Errorf("connection closed")
				}
				return nil
			}
		}

		health := handlers.NewHealthHandler(pipeline, checks, version)
		server = statushttp.NewServer(cfg.Status.Addr,
			statushttp.NewRouter(health, recorder.Registry(), cfg.StatusOrigins()), log)
		server.Start()
	}

	runErr := pipeline.Run(ctx)
	if stage, ok := usecase.FailedStage(runErr); ok {
		log.Error("leadsync run failed", zap.String("stage", string(stage)), zap.Error(runErr))
	}

	if cfg.Status.PushgatewayURL != "" {
		if err := recorder.Push(context.Background(), cfg.Status.PushgatewayURL, "leadsync"); err != nil {
			log.Warn("failed to push metrics", zap.Error(err))
		}
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("status server shutdown", zap.Error(err))
		}
	}

	return runErr
}

func newObjectStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (storage.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case config.StorageMinio:
		ms, err := storage.NewMinioStore(cfg.Storage.MinioEndpoint, cfg.Storage.MinioAccessKey,
			cfg.Storage.MinioSecretKey, cfg.Storage.Bucket, cfg.Storage.MinioUseSSL)
		if err != nil {
			return nil, err
		}
		if err := ms.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return ms, nil
	case config.StorageMemory:
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewS3Store(awsCfg, cfg.Storage.Bucket, cfg.AWS.EndpointURL), nil
	}
}

// newLeadStore escolhe o backend; a conexão só abre em LeadStore.Open.
func newLeadStore(cfg *config.Config, resolver *secrets.Resolver, log *zap.Logger) (*database.LeadStore, entity.Source) {
	if cfg.LeadStore.Backend == config.LeadStorePostgres {
		return database.NewLeadStore(func(ctx context.Context) (*database.LeadStoreConn, error) {
			db, err := database.NewPostgresConnection(ctx, cfg.LeadStore.PostgresURL)
			if err != nil {
				return nil, err
			}
			repo, err := database.NewPostgresLeadRepository(ctx, db, cfg.LeadStore.Collection)
			if err != nil {
				closeDB(db, log)
				return nil, err
			}
			return &database.LeadStoreConn{
				Repo:  repo,
				Ping:  db.PingContext,
				Close: func() { closeDB(db, log) },
			}, nil
		}), entity.SourcePostgres
	}

	return database.NewLeadStore(func(ctx context.Context) (*database.LeadStoreConn, error) {
		caPath := ""
		if cfg.LeadStore.CABundleURL != "" {
			hc := &http.Client{Timeout: 30 * time.Second}
			if err := database.DownloadCACertificate(ctx, hc, cfg.LeadStore.CABundleURL, cfg.LeadStore.CABundle); err != nil {
				return nil, err
			}
			caPath = cfg.LeadStore.CABundle
		}

		creds, err := resolver.DatabaseCredentials(ctx)
		if err != nil {
			return nil, err
		}

		client, err := database.ConnectMongo(ctx, database.BuildMongoURI(creds, cfg.LeadStore.Database, caPath))
		if err != nil {
			return nil, err
		}

		repo, err := database.NewMongoLeadRepository(ctx, client, cfg.LeadStore.Database, cfg.LeadStore.Collection, log)
		if err != nil {
			disconnect(client, log)
			return nil, err
		}

		return &database.LeadStoreConn{
			Repo:  repo,
			Ping:  func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
			Close: func() { disconnect(client, log) },
		}, nil
	}), entity.SourceMongo
}

// newNotifiers monta os avisos de fim de run. O producer do RabbitMQ volta sem canal:
// a conexão abre no setup do pipeline.
func newNotifiers(cfg *config.Config, awsCfg aws.Config, log *zap.Logger) (notify.Multi, *queue.RabbitMQProducer) {
	var notifiers notify.Multi

	if cfg.Notify.SNSTopicParameter != "" {
		notifiers = append(notifiers, notify.NewSNSNotifierFromConfig(awsCfg, cfg.AWS.SSMRegion, cfg.Notify.SNSTopicParameter, log))
	}

	var producer *queue.RabbitMQProducer
	if cfg.Notify.RabbitMQURL != "" {
		producer = queue.NewProducer(nil)
		notifiers = append(notifiers, producer)
	}

	if cfg.Notify.MailHost != "" {
		notifiers = append(notifiers, mail.NewEmailSender(
			cfg.Notify.MailHost, cfg.Notify.MailPort, cfg.Notify.MailUser, cfg.Notify.MailPass,
			cfg.Notify.MailFrom, cfg.MailRecipients(),
		))
	}

	return notifiers, producer
}

func disconnect(client *mongo.Client, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Warn("mongo disconnect", zap.Error(err))
	}
}

func closeDB(db *sql.DB, log *zap.Logger) {
	if err := db.Close(); err != nil {
		log.Warn("postgres close", zap.Error(err))
	}
}
