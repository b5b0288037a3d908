// Package config carrega a configuração do job: defaults, arquivo YAML opcional
// (LEADSYNC_CONFIG) e variáveis de ambiente, nessa ordem de precedência crescente.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

const (
	StorageS3     = "s3"
	StorageMinio  = "minio"
	StorageMemory = "memory"

	LeadStoreMongo    = "mongo"
	LeadStorePostgres = "postgres"
)

// EnvPrefix vale para qualquer chave, ex.: LEADSYNC_ZOHO_PAGE_SIZE.
const EnvPrefix = "LEADSYNC"

type Config struct {
	AWS struct {
		Region      string `mapstructure:"region"`
		SSMRegion   string `mapstructure:"ssm_region"`
		EndpointURL string `mapstructure:"endpoint_url"`
	} `mapstructure:"aws"`

	Storage struct {
		Backend        string `mapstructure:"backend"`
		Bucket         string `mapstructure:"bucket"`
		MinioEndpoint  string `mapstructure:"minio_endpoint"`
		MinioAccessKey string `mapstructure:"minio_access_key"`
		MinioSecretKey string `mapstructure:"minio_secret_key"`
		MinioUseSSL    bool   `mapstructure:"minio_use_ssl"`
	} `mapstructure:"storage"`

	Zoho struct {
		APIURL            string        `mapstructure:"api_url"`
		AccountsURL       string        `mapstructure:"accounts_url"`
		CredentialsSecret string        `mapstructure:"credentials_secret"`
		MaxRecords        int           `mapstructure:"max_records"`
		PageSize          int           `mapstructure:"page_size"`
		Timeout           time.Duration `mapstructure:"timeout"`
	} `mapstructure:"zoho"`

	LeadStore struct {
		Backend     string `mapstructure:"backend"`
		SecretName  string `mapstructure:"secret_name"`
		Database    string `mapstructure:"database"`
		Collection  string `mapstructure:"collection"`
		CABundleURL string `mapstructure:"ca_bundle_url"`
		CABundle    string `mapstructure:"ca_bundle_path"`
		PostgresURL string `mapstructure:"postgres_url"`
	} `mapstructure:"lead_store"`

	Notify struct {
		SNSTopicParameter string `mapstructure:"sns_topic_parameter"`
		RabbitMQURL       string `mapstructure:"rabbitmq_url"`
		MailHost          string `mapstructure:"mail_host"`
		MailPort          int    `mapstructure:"mail_port"`
		MailUser          string `mapstructure:"mail_user"`
		MailPass          string `mapstructure:"mail_pass"`
		MailFrom          string `mapstructure:"mail_from"`
		MailTo            string `mapstructure:"mail_to"`
	} `mapstructure:"notify"`

	Status struct {
		Addr           string `mapstructure:"addr"`
		AllowedOrigins string `mapstructure:"allowed_origins"`
		PushgatewayURL string `mapstructure:"pushgateway_url"`
	} `mapstructure:"status"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
}

// envBindings mantém os nomes de variável que o deploy já usa.
var envBindings = map[string]string{
	"aws.region":       "AWS_REGION",
	"aws.ssm_region":   "SSM_REGION",
	"aws.endpoint_url": "AWS_ENDPOINT_URL",

	"storage.backend":          "STORAGE_BACKEND",
	"storage.bucket":           "S3_BUCKET",
	"storage.minio_endpoint":   "MINIO_ENDPOINT",
	"storage.minio_access_key": "MINIO_ACCESS_KEY",
	"storage.minio_secret_key": "MINIO_SECRET_KEY",
	"storage.minio_use_ssl":    "MINIO_USE_SSL",

	"zoho.api_url":            "ZOHO_API_URL",
	"zoho.accounts_url":       "ZOHO_ACCOUNTS_URL",
	"zoho.credentials_secret": "ZOHO_CREDENTIALS_SECRET",
	"zoho.max_records":        "ZOHO_MAX_RECORDS",
	"zoho.page_size":          "ZOHO_PAGE_SIZE",
	"zoho.timeout":            "ZOHO_TIMEOUT",

	"lead_store.backend":        "LEAD_STORE",
	"lead_store.secret_name":    "MONGO_SECRET_NAME",
	"lead_store.database":       "MONGO_DATABASE",
	"lead_store.collection":     "MONGO_COLLECTION",
	"lead_store.ca_bundle_url":  "CA_BUNDLE_URL",
	"lead_store.ca_bundle_path": "CA_BUNDLE_PATH",
	"lead_store.postgres_url":   "DATABASE_URL",

	"notify.sns_topic_parameter": "SNS_TOPIC_PARAMETER",
	"notify.rabbitmq_url":        "RABBITMQ_URL",
	"notify.mail_host":           "MAIL_HOST",
	"notify.mail_port":           "MAIL_PORT",
	"notify.mail_user":           "MAIL_USER",
	"notify.mail_pass":           "MAIL_PASS",
	"notify.mail_from":           "MAIL_FROM",
	"notify.mail_to":             "MAIL_TO",

	"status.addr":            "STATUS_ADDR",
	"status.allowed_origins": "STATUS_ALLOWED_ORIGINS",
	"status.pushgateway_url": "PUSHGATEWAY_URL",

	"logging.level":  "LOG_LEVEL",
	"logging.format": "LOG_FORMAT",
}

// Default devolve a configuração de produção.
func Default() *Config {
	cfg := &Config{}

	cfg.AWS.Region = "ap-southeast-2"
	cfg.AWS.SSMRegion = "ap-southeast-2"

	cfg.Storage.Backend = StorageS3
	cfg.Storage.Bucket = "zoho-mig-mgdb-cf-log"

	cfg.Zoho.APIURL = "https://www.zohoapis.com.au/crm"
	cfg.Zoho.AccountsURL = "https://accounts.zoho.com.au"
	cfg.Zoho.CredentialsSecret = "zoho_crm_credentials"
	cfg.Zoho.MaxRecords = 4000
	cfg.Zoho.PageSize = 200
	cfg.Zoho.Timeout = 30 * time.Second

	cfg.LeadStore.Backend = LeadStoreMongo
	cfg.LeadStore.SecretName = "zohocrmmig"
	cfg.LeadStore.Database = "zoho_crm"
	cfg.LeadStore.Collection = "leads"
	cfg.LeadStore.CABundleURL = "https://truststore.pki.rds.amazonaws.com/global/global-bundle.pem"
	cfg.LeadStore.CABundle = "/tmp/global-bundle.pem"

	cfg.Notify.SNSTopicParameter = "sns_topic_arn"
	cfg.Notify.MailPort = 587

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	return cfg
}

// Load aplica .env (se existir), o YAML de LEADSYNC_CONFIG e as variáveis de ambiente.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if path := os.Getenv("LEADSYNC_CONFIG"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, eris.Wrapf(err, "failed to read config file %s", path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, eris.Wrapf(err, "failed to bind %s", env)
		}
	}

	// chaves ausentes no arquivo e no ambiente ficam com o valor de Default
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, eris.Wrap(err, "failed to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageS3, StorageMemory:
	case StorageMinio:
		if c.Storage.MinioEndpoint == "" {
			return eris.New("MINIO_ENDPOINT is required for the minio storage backend")
		}
	default:
		return eris.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Storage.Bucket == "" {
		return eris.New("storage bucket is required")
	}

	switch c.LeadStore.Backend {
	case LeadStoreMongo:
		if c.LeadStore.SecretName == "" {
			return eris.New("MONGO_SECRET_NAME is required for the mongo lead store")
		}
	case LeadStorePostgres:
		if c.LeadStore.PostgresURL == "" {
			return eris.New("DATABASE_URL is required for the postgres lead store")
		}
	default:
		return eris.Errorf("unknown lead store %q", c.LeadStore.Backend)
	}

	if c.Zoho.MaxRecords <= 0 {
		return eris.New("ZOHO_MAX_RECORDS must be positive")
	}
	if c.Zoho.PageSize <= 0 || c.Zoho.PageSize > 200 {
		return eris.New("ZOHO_PAGE_SIZE must be between 1 and 200")
	}

	return nil
}

// MailRecipients separa MAIL_TO por vírgula.
func (c *Config) MailRecipients() []string {
	return splitList(c.Notify.MailTo)
}

func (c *Config) StatusOrigins() []string {
	origins := splitList(c.Status.AllowedOrigins)
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
