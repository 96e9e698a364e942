package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	LedgerRedis     = "redis"
)

type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	Storage    string           `yaml:"storage" env:"STORAGE" env-default:"memory"`
	Ledger     string           `yaml:"ledger" env:"LEDGER" env-default:"memory"`
	DSN        string           `yaml:"dsn" env:"DSN"`
	HTTP       HTTPConfig       `yaml:"http"`
	Admin      AdminConfig      `yaml:"admin"`
	Portal     PortalConfig     `yaml:"portal"`
	MediaStore MediaStoreConfig `yaml:"media_store"`
	Redis      RedisConf        `yaml:"redis"`
	Jobs       JobsConfig       `yaml:"jobs"`
}

type HTTPConfig struct {
	Host          string        `yaml:"host" env:"HTTP_HOST"`
	Port          string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	SessionSecret string        `yaml:"session_secret" env:"HTTP_SESSION_SECRET" env-default:"change-me"`
	SecureCookies bool          `yaml:"secure_cookies" env:"HTTP_SECURE_COOKIES"`
	ReadTimeout   time.Duration `yaml:"read_timeout" env-default:"15s"`
	WriteTimeout  time.Duration `yaml:"write_timeout" env-default:"60s"`
}

type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"ADMIN_JWT_SECRET" env-required:"true"`
}

// PortalConfig параметры клиентского портала
type PortalConfig struct {
	DownloadWindow time.Duration `yaml:"download_window" env:"PORTAL_DOWNLOAD_WINDOW" env-default:"30m"`
	GrantTTL       time.Duration `yaml:"grant_ttl" env:"PORTAL_GRANT_TTL" env-default:"12h"`
	UpdateRetries  int           `yaml:"update_retries" env-default:"5"`
}

// MediaStoreConfig при заданном LocalDir ассеты читаются с диска вместо HTTP
type MediaStoreConfig struct {
	BaseURL  string        `yaml:"base_url" env:"MEDIA_STORE_BASE_URL"`
	LocalDir string        `yaml:"local_dir" env:"MEDIA_STORE_LOCAL_DIR"`
	Timeout  time.Duration `yaml:"timeout" env-default:"30s"`
	Retries  int           `yaml:"retries" env-default:"2"`
}

type RedisConf struct {
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redispassword" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
}

type JobsConfig struct {
	LedgerPruneSpec string        `yaml:"ledger_prune_spec" env-default:"@every 1h"`
	LedgerRetention time.Duration `yaml:"ledger_retention" env-default:"720h"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	if err := cfg.validate(); err != nil {
		panic("invalid config: " + err.Error())
	}

	return &cfg
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return errUnknown("storage", c.Storage)
	}
	switch c.Ledger {
	case StorageMemory, StoragePostgres, LedgerRedis:
	default:
		return errUnknown("ledger", c.Ledger)
	}
	if (c.Storage == StoragePostgres || c.Ledger == StoragePostgres) && c.DSN == "" {
		return configError("dsn is required for postgres storage")
	}
	if c.Portal.DownloadWindow <= 0 {
		return configError("portal.download_window must be positive")
	}
	return nil
}

type configError string

func (e configError) Error() string { return string(e) }

func errUnknown(key, val string) error {
	return configError("unknown " + key + " '" + val + "'")
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
