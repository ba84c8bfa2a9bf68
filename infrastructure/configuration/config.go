package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"publish-scheduler/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database     Database     `json:"database"`
	App          App          `json:"app"`
	Pubsub       Pubsub       `json:"pubsub"`
	ServiceBus   ServiceBus   `json:"serviceBus"`
	RedisClient  RedisClient  `json:"redisClient"`
	Logger       Logger       `json:"logger"`
	OAuth        OAuth        `json:"oauth"`
	Notification Notification `json:"notification"`
	Scheduler    Scheduler    `json:"scheduler"`
	Sentry       Sentry       `json:"sentry"`
}

type App struct {
	Port        int      `json:"port"`
	SecretKey   string   `json:"secretKey"`
	TLSEnabled  bool     `json:"tlsEnabled"`
	TLSCertFile string   `json:"tlsCertFile"`
	TLSKeyFile  string   `json:"tlsKeyFile"`
	CorsOrigins []string `json:"corsOrigins"`
}

type Database struct {
	// Vendor selects the task store: postgres (default), mssql or mysql.
	Vendor string `json:"vendor"`
	Psql   Db     `json:"psql"`
	MySql  Db     `json:"mysql"`
	Mongo  Db     `json:"mongo"`
	Mssql  Db     `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
}

// OAuth holds third-party platform OAuth client credentials
type OAuth struct {
	LinkedIn OAuthClient `json:"linkedin"`
}

type OAuthClient struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	Scopes       []string `json:"scopes"`
	AuthURL      string   `json:"authURL"`
	APIURL       string   `json:"apiURL"`
	RateLimit    float64  `json:"rateLimit"`
	Burst        int      `json:"burst"`
}

type Notification struct {
	Ntfy     Ntfy     `json:"ntfy"`
	Telegram Telegram `json:"telegram"`
}

type Ntfy struct {
	Server string `json:"server"`
	Topic  string `json:"topic"`
	Token  string `json:"token"`
}

type Telegram struct {
	BotToken string `json:"botToken"`
	ChatID   string `json:"chatId"`
	APIURL   string `json:"apiURL"`
}

type Scheduler struct {
	Enabled              bool          `json:"enabled"`
	Interval             time.Duration `json:"interval"`
	BatchSize            int           `json:"batchSize"`
	AdapterTimeout       time.Duration `json:"adapterTimeout"`
	MaxAttempts          int           `json:"maxAttempts"`
	RetryInitialInterval time.Duration `json:"retryInitialInterval"`
	RetryMaxInterval     time.Duration `json:"retryMaxInterval"`
	ClaimLease           time.Duration `json:"claimLease"`
	NotifySuccess        *bool         `json:"notifySuccess"`
	RunOnStart           bool          `json:"runOnStart"`
	LeaderLock           bool          `json:"leaderLock"`
	LeaderLockKey        string        `json:"leaderLockKey"`
	LeaderLockTTL        time.Duration `json:"leaderLockTTL"`
}

type Sentry struct {
	DSN         string `json:"dsn"`
	Environment string `json:"environment"`
}

var C Config

func init() {
	EnvFiles = LoadEnvFromFile("config.env", ".env")
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initIntegrations(&C)
	applySchedulerDefaults(&C.Scheduler)
	// Prefer https redirect URIs locally when TLS enabled
	if C.App.TLSEnabled && C.OAuth.LinkedIn.RedirectURI != "" && !hasHTTPS(C.OAuth.LinkedIn.RedirectURI) {
		C.OAuth.LinkedIn.RedirectURI = toHTTPSCallback(C.OAuth.LinkedIn.RedirectURI)
	}
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	// Production runs on Azure SQL unless told otherwise; local defaults to PostgreSQL.
	defaultVendor := "postgres"
	if env := os.Getenv("ENV"); env == "production" || env == "prod" {
		defaultVendor = "mssql"
	}
	C.Database.Vendor = strings.ToLower(getConfigValue(C.Database.Vendor, "DB_VENDOR", defaultVendor))

	fillDb(&C.Database.Psql, "DB", "5432", "postgres", "localhost")
	fillDb(&C.Database.Mssql, "MSSQL", "1433", "sa", "localhost")
	fillDb(&C.Database.MySql, "MYSQL", "3306", "root", "localhost")
	fillDb(&C.Database.Mongo, "MONGO", "27017", "", "")
	if C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = os.Getenv("MSSQL_DB_NAME")
	}
	if C.Database.Mongo.Name == "" {
		C.Database.Mongo.Name = "publish_scheduler"
	}
	logger.GetLogger().WithField("vendor", C.Database.Vendor).WithField("host", hostOf(C)).Info("Database configuration")
}

// fillDb fills empty fields from <PREFIX>_NAME, _HOST, _PORT, _USER and _PASSWORD.
func fillDb(db *Db, prefix, defaultPort, defaultUser, defaultHost string) {
	db.Name = getConfigValue(db.Name, prefix+"_NAME", "")
	db.Host = getConfigValue(db.Host, prefix+"_HOST", defaultHost)
	db.Port = getConfigValue(db.Port, prefix+"_PORT", defaultPort)
	db.User = getConfigValue(db.User, prefix+"_USER", defaultUser)
	db.Password = getConfigValue(db.Password, prefix+"_PASSWORD", "")
}

func hostOf(C *Config) string {
	switch C.Database.Vendor {
	case "mssql":
		return C.Database.Mssql.Host
	case "mysql":
		return C.Database.MySql.Host
	default:
		return C.Database.Psql.Host
	}
}

func initApp(C *Config) {
	// Prefer SECRET_KEY from environment for JWT verification; overrides config file when provided
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		C.App.TLSEnabled = parseBool(v, C.App.TLSEnabled)
	}
	C.App.TLSCertFile = getConfigValue(C.App.TLSCertFile, "TLS_CERT_FILE", "")
	C.App.TLSKeyFile = getConfigValue(C.App.TLSKeyFile, "TLS_KEY_FILE", "")
	if len(C.App.CorsOrigins) == 0 {
		C.App.CorsOrigins = []string{"http://localhost:4200", "https://localhost:4200"}
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initIntegrations(C *Config) {
	C.RedisClient.Host = getConfigValue(C.RedisClient.Host, "REDIS_HOST", "")
	C.RedisClient.Port = getConfigValue(C.RedisClient.Port, "REDIS_PORT", "6379")
	C.RedisClient.Username = getConfigValue(C.RedisClient.Username, "REDIS_USERNAME", "")
	C.RedisClient.Password = getConfigValue(C.RedisClient.Password, "REDIS_PASSWORD", "")

	C.Pubsub.ProjectID = getConfigValue(C.Pubsub.ProjectID, "PUBSUB_PROJECT_ID", "")
	C.Pubsub.Topic = getConfigValue(C.Pubsub.Topic, "PUBSUB_TOPIC", "publish-outcomes")
	C.ServiceBus.Namespace = getConfigValue(C.ServiceBus.Namespace, "SERVICEBUS_NAMESPACE", "")
	C.ServiceBus.Queue = getConfigValue(C.ServiceBus.Queue, "SERVICEBUS_QUEUE", "publish-outcomes")

	C.Notification.Ntfy.Server = getConfigValue(C.Notification.Ntfy.Server, "NTFY_SERVER", "https://ntfy.sh")
	C.Notification.Ntfy.Topic = getConfigValue(C.Notification.Ntfy.Topic, "NTFY_TOPIC", "")
	C.Notification.Ntfy.Token = getConfigValue(C.Notification.Ntfy.Token, "NTFY_TOKEN", "")
	C.Notification.Telegram.BotToken = getConfigValue(C.Notification.Telegram.BotToken, "TELEGRAM_BOT_TOKEN", "")
	C.Notification.Telegram.ChatID = getConfigValue(C.Notification.Telegram.ChatID, "TELEGRAM_CHAT_ID", "")
	C.Notification.Telegram.APIURL = getConfigValue(C.Notification.Telegram.APIURL, "TELEGRAM_API_URL", "https://api.telegram.org")

	C.Sentry.DSN = getConfigValue(C.Sentry.DSN, "SENTRY_DSN", "")
	C.Sentry.Environment = getConfigValue(C.Sentry.Environment, "ENV", "local")
}

// applySchedulerDefaults fills zero values and applies SCHEDULER_* overrides.
func applySchedulerDefaults(s *Scheduler) {
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		s.Enabled = parseBool(v, s.Enabled)
	} else if !viper.IsSet("scheduler.enabled") {
		s.Enabled = true
	}
	s.Interval = envDuration("SCHEDULER_INTERVAL", s.Interval, time.Minute)
	s.AdapterTimeout = envDuration("SCHEDULER_ADAPTER_TIMEOUT", s.AdapterTimeout, 30*time.Second)
	s.RetryInitialInterval = envDuration("SCHEDULER_RETRY_INITIAL_INTERVAL", s.RetryInitialInterval, time.Minute)
	s.RetryMaxInterval = envDuration("SCHEDULER_RETRY_MAX_INTERVAL", s.RetryMaxInterval, 30*time.Minute)
	s.ClaimLease = envDuration("SCHEDULER_CLAIM_LEASE", s.ClaimLease, 10*time.Minute)
	s.LeaderLockTTL = envDuration("SCHEDULER_LEADER_LOCK_TTL", s.LeaderLockTTL, 3*s.Interval)
	s.BatchSize = envInt("SCHEDULER_BATCH_SIZE", s.BatchSize, 10)
	s.MaxAttempts = envInt("SCHEDULER_MAX_ATTEMPTS", s.MaxAttempts, 3)
	if v := os.Getenv("SCHEDULER_LEADER_LOCK"); v != "" {
		s.LeaderLock = parseBool(v, s.LeaderLock)
	}
	if v := os.Getenv("SCHEDULER_RUN_ON_START"); v != "" {
		s.RunOnStart = parseBool(v, s.RunOnStart)
	}
	if v := os.Getenv("SCHEDULER_NOTIFY_SUCCESS"); v != "" {
		b := parseBool(v, true)
		s.NotifySuccess = &b
	}
	if s.NotifySuccess == nil {
		b := true
		s.NotifySuccess = &b
	}
	if s.LeaderLockKey == "" {
		s.LeaderLockKey = "publish-scheduler:leader"
	}
}

// helpers to coerce local callback to https
func hasHTTPS(u string) bool { return strings.HasPrefix(u, "https://") }
func toHTTPSCallback(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
