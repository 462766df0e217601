package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string

		Server   ServerConfig
		Auth     AuthConfig
		Database DatabaseConfig
		Media    MediaConfig
		Cache    CacheConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugAddress    string
		ShutdownTimeout time.Duration
		CORSOrigins     []string
		BodyLimit       string
	}

	AuthConfig struct {
		SecretKey            string
		AdminSecretKey       string
		AccessTokenTTL       time.Duration
		RefreshTokenTTL      time.Duration
		AdminAccessTokenTTL  time.Duration
		AdminRefreshTokenTTL time.Duration
		OTPTTL               time.Duration
		OTPMaxAttempts       int
		ResetSessionTTL      time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite file
	}

	MediaConfig struct {
		Dir     string
		BaseURL string
		MaxSize int64
	}

	CacheConfig struct {
		DefaultTTL      time.Duration
		CleanupInterval time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	if c.Port == "" {
		return c.Host
	}
	return c.Host + ":" + c.Port
}

func (c *Config) IsSQLite() bool {
	return c.Database.Engine == "sqlite"
}

// NewConfig reads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with VOYAGE, eg. VOYAGE_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("appName", "VistaVoyage")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "VistaVoyage <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.corsOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.bodyLimit", "8M")

	v.SetDefault("auth.secretKey", "9y$+b2z&c!kq@#r(1t)0m_voyage-user-dev-secret")
	v.SetDefault("auth.adminSecretKey", "m3^x!w8p@e(l)#dq_voyage-admin-dev-secret")
	v.SetDefault("auth.accessTokenTTL", 60*time.Minute)
	v.SetDefault("auth.refreshTokenTTL", 2*24*time.Hour)
	v.SetDefault("auth.adminAccessTokenTTL", 30*time.Minute)
	v.SetDefault("auth.adminRefreshTokenTTL", 7*24*time.Hour)
	v.SetDefault("auth.otpTTL", 5*time.Minute)
	v.SetDefault("auth.otpMaxAttempts", 5)
	v.SetDefault("auth.resetSessionTTL", 10*time.Minute)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "voyage")
	v.SetDefault("database.user", "voyage")
	v.SetDefault("database.password", "voyage")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", "voyage.db")

	v.SetDefault("media.dir", "media")
	v.SetDefault("media.baseURL", "http://localhost:8000/media")
	v.SetDefault("media.maxSize", int64(5<<20))

	v.SetDefault("cache.defaultTTL", 5*time.Minute)
	v.SetDefault("cache.cleanupInterval", time.Minute)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix("VOYAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		WorkDir:          wd,
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: *from,
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugAddress:    v.GetString("server.debugAddress"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			CORSOrigins:     v.GetStringSlice("server.corsOrigins"),
			BodyLimit:       v.GetString("server.bodyLimit"),
		},
		Auth: AuthConfig{
			SecretKey:            v.GetString("auth.secretKey"),
			AdminSecretKey:       v.GetString("auth.adminSecretKey"),
			AccessTokenTTL:       v.GetDuration("auth.accessTokenTTL"),
			RefreshTokenTTL:      v.GetDuration("auth.refreshTokenTTL"),
			AdminAccessTokenTTL:  v.GetDuration("auth.adminAccessTokenTTL"),
			AdminRefreshTokenTTL: v.GetDuration("auth.adminRefreshTokenTTL"),
			OTPTTL:               v.GetDuration("auth.otpTTL"),
			OTPMaxAttempts:       v.GetInt("auth.otpMaxAttempts"),
			ResetSessionTTL:      v.GetDuration("auth.resetSessionTTL"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Media: MediaConfig{
			Dir:     v.GetString("media.dir"),
			BaseURL: strings.TrimRight(v.GetString("media.baseURL"), "/"),
			MaxSize: v.GetInt64("media.maxSize"),
		},
		Cache: CacheConfig{
			DefaultTTL:      v.GetDuration("cache.defaultTTL"),
			CleanupInterval: v.GetDuration("cache.cleanupInterval"),
		},
	}
}

// NewTestConfig returns a config suitable for tests: sqlite in `dir`, no debug output.
func NewTestConfig(dir string) *Config {
	conf := NewConfig()
	conf.Env = "TEST"
	conf.Debug = false
	conf.TestMode = true
	conf.Database.Engine = "sqlite"
	conf.Database.Path = filepath.Join(dir, "test.db")
	conf.Media.Dir = filepath.Join(dir, "media")
	conf.Auth.SecretKey = "test-user-secret"
	conf.Auth.AdminSecretKey = "test-admin-secret"
	return conf
}
