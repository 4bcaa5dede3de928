package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string // DEV (default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridApiKey   string

		Server     ServerConfig
		Database   DatabaseConfig
		Auth       AuthConfig
		Transcript TranscriptConfig
		Storage    StorageConfig
		Redis      RedisConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite3
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite3 only
	}

	AuthConfig struct {
		LoginCodeTTL      time.Duration
		LoginCodeRequests int
		LoginCodeWindow   time.Duration
		LoginCodeAttempts int // verifications allowed per issued code
	}

	TranscriptConfig struct {
		AutosaveDelay time.Duration
	}

	StorageConfig struct {
		Backend         string // local | gcs
		LocalDir        string
		Bucket          string
		CredentialsFile string
		PublicBaseURL   string
	}

	RedisConfig struct {
		Addr    string
		Channel string
	}
)

// Address returns the "host:port" of the database server.
func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

// Address returns the "host:port" the API server listens on.
func (sc ServerConfig) Address() string {
	return net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port))
}

// NewConfig loads the app configuration from defaults, the optional config/.env.<env> file and the environment.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v, env)

	// load .env if it exists (ignore if it does not)
	workDir := Getwd()
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if err := loadDotEnv(dotEnvPath); err != nil {
		panic(err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		WorkDir:          workDir,
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Port:                      v.GetInt("server.port"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Auth: AuthConfig{
			LoginCodeTTL:      v.GetDuration("auth.loginCodeTTL"),
			LoginCodeRequests: v.GetInt("auth.loginCodeRequests"),
			LoginCodeWindow:   v.GetDuration("auth.loginCodeWindow"),
			LoginCodeAttempts: v.GetInt("auth.loginCodeAttempts"),
		},
		Transcript: TranscriptConfig{
			AutosaveDelay: v.GetDuration("transcript.autosaveDelay"),
		},
		Storage: StorageConfig{
			Backend:         v.GetString("storage.backend"),
			LocalDir:        v.GetString("storage.localDir"),
			Bucket:          v.GetString("storage.bucket"),
			CredentialsFile: v.GetString("storage.credentialsFile"),
			PublicBaseURL:   v.GetString("storage.publicBaseURL"),
		},
		Redis: RedisConfig{
			Addr:    v.GetString("redis.addr"),
			Channel: v.GetString("redis.channel"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Homeroom")
	v.SetDefault("secretKey", "8q$h2k)vw=3r!b#ye7n(0d%zs^ufm+t1&c4x@l9p*a6gjo5")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "homeroom")
	v.SetDefault("database.user", "homeroom")
	v.SetDefault("database.password", "homeroom")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")
	v.SetDefault("database.path", "homeroom.db")

	v.SetDefault("auth.loginCodeTTL", 10*time.Minute)
	v.SetDefault("auth.loginCodeRequests", 5)
	v.SetDefault("auth.loginCodeWindow", 15*time.Minute)
	v.SetDefault("auth.loginCodeAttempts", 5)

	v.SetDefault("transcript.autosaveDelay", 1500*time.Millisecond)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.localDir", "media")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.credentialsFile", "")
	v.SetDefault("storage.publicBaseURL", "/media")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.channel", "homeroom.events")
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "loading %s", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "stat %s", path)
	}
	return nil
}

// NewTestConfig returns a Config suited for tests: no env lookups, sqlite in memory, tiny delays.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          "Homeroom",
		SecretKey:        "secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Homeroom", Address: "noreply@localhost"},
		Server: ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Database: DatabaseConfig{Engine: "sqlite3", Path: ":memory:"},
		Auth: AuthConfig{
			LoginCodeTTL:      10 * time.Minute,
			LoginCodeRequests: 3,
			LoginCodeWindow:   time.Minute,
			LoginCodeAttempts: 3,
		},
		Transcript: TranscriptConfig{AutosaveDelay: 50 * time.Millisecond},
		Storage:    StorageConfig{Backend: "local", PublicBaseURL: "/media"},
		Redis:      RedisConfig{Channel: "homeroom.events"},
	}
}
