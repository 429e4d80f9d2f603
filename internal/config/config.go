package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Session cookie scopes.
const (
	SessionScopeBrowser    = "browser"
	SessionScopePersistent = "persistent"
)

// Workspace store drivers.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverMySQL  = "mysql"
)

// Config holds runtime configuration for the dashboard server and terminal front-end.
type Config struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	BackendURL       string
	BackendTimeout   time.Duration
	MaxDownloadBytes int64

	SessionSecret      string
	SessionCookie      string
	SessionScope       string
	SessionMaxAge      time.Duration
	SessionSecure      bool
	RecentLimit        int
	StatusProbeTimeout time.Duration

	StoreEnabled    bool
	StoreDriver     string
	StoreSQLitePath string
	DBHost          string
	DBPort          int
	DBUser          string
	DBPassword      string
	DBName          string
	DBConnTimeout   time.Duration
	DBQueryTimeout  time.Duration

	ArchiveEnabled bool
	ArchivePath    string
	ArchiveTTL     time.Duration

	TUIProfile string
	TUILogFile string
}

var defaults = map[string]any{
	"APP_LISTEN_ADDR":              ":8080",
	"APP_READ_TIMEOUT_SEC":         10,
	"APP_WRITE_TIMEOUT_SEC":        120,
	"APP_SHUTDOWN_TIMEOUT_SEC":     10,
	"APP_LOG_LEVEL":                "info",
	"APP_LOG_FORMAT":               "text",
	"APP_BACKEND_URL":              "http://localhost:8000",
	"APP_BACKEND_TIMEOUT_SEC":      60,
	"APP_MAX_DOWNLOAD_MB":          64,
	"APP_SESSION_SECRET":           "",
	"APP_SESSION_COOKIE":           "protein_ui_session",
	"APP_SESSION_SCOPE":            SessionScopeBrowser,
	"APP_SESSION_MAX_AGE_HOURS":    168,
	"APP_SESSION_SECURE":           false,
	"APP_RECENT_LIMIT":             5,
	"APP_STATUS_PROBE_TIMEOUT_SEC": 8,
	"APP_STORE_ENABLED":            true,
	"APP_STORE_DRIVER":             StoreDriverSQLite,
	"APP_STORE_SQLITE_PATH":        "./protein-ui.db",
	"APP_DB_HOST":                  "127.0.0.1",
	"APP_DB_PORT":                  3306,
	"APP_DB_USER":                  "protein",
	"APP_DB_PASSWORD":              "",
	"APP_DB_NAME":                  "protein_ui",
	"APP_DB_CONN_TIMEOUT_SEC":      5,
	"APP_DB_QUERY_TIMEOUT_SEC":     5,
	"APP_ARCHIVE_ENABLED":          true,
	"APP_ARCHIVE_PATH":             "./data/archive",
	"APP_ARCHIVE_TTL_HOURS":        720,
	"APP_TUI_PROFILE":              "default",
	"APP_TUI_LOG_FILE":             "",
}

// FromEnv loads configuration from environment variables with sensible defaults.
func FromEnv() Config {
	loadConfigDefaultsFromFile()
	loadSecretsDefaultsFromFile()

	v := viper.New()
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	return Config{
		ListenAddr:         getString(v, "APP_LISTEN_ADDR"),
		ReadTimeout:        time.Duration(getInt(v, "APP_READ_TIMEOUT_SEC")) * time.Second,
		WriteTimeout:       time.Duration(getInt(v, "APP_WRITE_TIMEOUT_SEC")) * time.Second,
		ShutdownTimeout:    time.Duration(getInt(v, "APP_SHUTDOWN_TIMEOUT_SEC")) * time.Second,
		LogLevel:           strings.ToLower(getString(v, "APP_LOG_LEVEL")),
		LogFormat:          strings.ToLower(getString(v, "APP_LOG_FORMAT")),
		BackendURL:         strings.TrimRight(getString(v, "APP_BACKEND_URL"), "/"),
		BackendTimeout:     time.Duration(getInt(v, "APP_BACKEND_TIMEOUT_SEC")) * time.Second,
		MaxDownloadBytes:   int64(getInt(v, "APP_MAX_DOWNLOAD_MB")) << 20,
		SessionSecret:      getString(v, "APP_SESSION_SECRET"),
		SessionCookie:      getString(v, "APP_SESSION_COOKIE"),
		SessionScope:       strings.ToLower(getString(v, "APP_SESSION_SCOPE")),
		SessionMaxAge:      time.Duration(getInt(v, "APP_SESSION_MAX_AGE_HOURS")) * time.Hour,
		SessionSecure:      getBool(v, "APP_SESSION_SECURE"),
		RecentLimit:        getInt(v, "APP_RECENT_LIMIT"),
		StatusProbeTimeout: time.Duration(getInt(v, "APP_STATUS_PROBE_TIMEOUT_SEC")) * time.Second,
		StoreEnabled:       getBool(v, "APP_STORE_ENABLED"),
		StoreDriver:        strings.ToLower(getString(v, "APP_STORE_DRIVER")),
		StoreSQLitePath:    getString(v, "APP_STORE_SQLITE_PATH"),
		DBHost:             getString(v, "APP_DB_HOST"),
		DBPort:             getInt(v, "APP_DB_PORT"),
		DBUser:             getString(v, "APP_DB_USER"),
		DBPassword:         getString(v, "APP_DB_PASSWORD"),
		DBName:             getString(v, "APP_DB_NAME"),
		DBConnTimeout:      time.Duration(getInt(v, "APP_DB_CONN_TIMEOUT_SEC")) * time.Second,
		DBQueryTimeout:     time.Duration(getInt(v, "APP_DB_QUERY_TIMEOUT_SEC")) * time.Second,
		ArchiveEnabled:     getBool(v, "APP_ARCHIVE_ENABLED"),
		ArchivePath:        getString(v, "APP_ARCHIVE_PATH"),
		ArchiveTTL:         time.Duration(getInt(v, "APP_ARCHIVE_TTL_HOURS")) * time.Hour,
		TUIProfile:         getString(v, "APP_TUI_PROFILE"),
		TUILogFile:         getString(v, "APP_TUI_LOG_FILE"),
	}
}

// Validate reports configuration values the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("APP_BACKEND_URL must be an absolute http(s) URL, got %q", c.BackendURL))
	}
	switch c.SessionScope {
	case SessionScopeBrowser, SessionScopePersistent:
	default:
		errs = append(errs, fmt.Errorf("APP_SESSION_SCOPE must be %q or %q, got %q", SessionScopeBrowser, SessionScopePersistent, c.SessionScope))
	}
	if c.StoreEnabled {
		switch c.StoreDriver {
		case StoreDriverSQLite:
			if strings.TrimSpace(c.StoreSQLitePath) == "" {
				errs = append(errs, errors.New("APP_STORE_SQLITE_PATH is required for the sqlite store"))
			}
		case StoreDriverMySQL:
			if c.DBName == "" || c.DBUser == "" {
				errs = append(errs, errors.New("APP_DB_NAME and APP_DB_USER are required for the mysql store"))
			}
		default:
			errs = append(errs, fmt.Errorf("APP_STORE_DRIVER must be %q or %q, got %q", StoreDriverSQLite, StoreDriverMySQL, c.StoreDriver))
		}
	}
	if c.ArchiveEnabled && strings.TrimSpace(c.ArchivePath) == "" {
		errs = append(errs, errors.New("APP_ARCHIVE_PATH is required when the archive is enabled"))
	}
	return errors.Join(errs...)
}

// MySQLDSN returns a mysql driver DSN with safe defaults for TCP access.
func (c Config) MySQLDSN() string {
	params := url.Values{}
	params.Set("parseTime", "true")
	params.Set("timeout", c.DBConnTimeout.String())
	params.Set("readTimeout", c.DBQueryTimeout.String())
	params.Set("writeTimeout", c.DBQueryTimeout.String())
	params.Set("charset", "utf8mb4")
	params.Set("clientFoundRows", "true")
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, params.Encode())
}

func loadConfigDefaultsFromFile() {
	bootstrapCandidates := []string{
		"./protein-ui.env",
		"/etc/default/protein-ui",
	}
	for _, candidate := range bootstrapCandidates {
		_ = applyEnvDefaultsFromFile(absPath(candidate))
	}

	candidates := make([]string, 0, 2)
	if explicit := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, "/etc/protein-ui/config.env")

	for _, candidate := range candidates {
		if err := applyEnvDefaultsFromFile(absPath(candidate)); err == nil {
			return
		}
	}
}

func loadSecretsDefaultsFromFile() {
	candidates := make([]string, 0, 3)
	if explicit := strings.TrimSpace(os.Getenv("APP_SECRETS_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	if credDir := strings.TrimSpace(os.Getenv("CREDENTIALS_DIRECTORY")); credDir != "" {
		credName := strings.TrimSpace(os.Getenv("APP_SECRETS_CREDENTIAL_NAME"))
		if credName == "" {
			credName = "app-secrets"
		}
		candidates = append(candidates, filepath.Join(credDir, credName))
	}
	candidates = append(candidates, "/etc/protein-ui/secrets.env")
	for _, candidate := range candidates {
		if err := applyEnvDefaultsFromFile(candidate); err == nil {
			return
		}
	}
}

// applyEnvDefaultsFromFile sets variables from a dotenv file without
// overriding anything already present in the environment.
func applyEnvDefaultsFromFile(path string) error {
	vals, err := godotenv.Read(path)
	if err != nil {
		return err
	}
	for key, val := range vals {
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
	return nil
}

func absPath(candidate string) string {
	if filepath.IsAbs(candidate) {
		return candidate
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, candidate)
	}
	return candidate
}

func getString(v *viper.Viper, key string) string {
	if val := strings.TrimSpace(v.GetString(key)); val != "" {
		return val
	}
	def, _ := defaults[key].(string)
	return def
}

func getInt(v *viper.Viper, key string) int {
	def, _ := defaults[key].(int)
	parsed, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return def
	}
	return parsed
}

func getBool(v *viper.Viper, key string) bool {
	def, _ := defaults[key].(bool)
	parsed, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return def
	}
	return parsed
}
