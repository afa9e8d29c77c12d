package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	maxWalkDepth = 25
	envPrefix    = "OWNERSHIP"
)

// configNames are tried in order in every directory during discovery.
var configNames = []string{"ownership.yaml", "ownership.yml"}

// Config represents the configuration from ownership.yaml.
type Config struct {
	// Snapshot is the default calculation file for commands that read one.
	Snapshot string `mapstructure:"snapshot" json:"snapshot"`

	Log      LogConfig      `mapstructure:"log" json:"log"`
	Compute  ComputeConfig  `mapstructure:"compute" json:"compute"`
	Report   ReportConfig   `mapstructure:"report" json:"report"`
	Database DatabaseConfig `mapstructure:"database" json:"database"`
	Blob     BlobConfig     `mapstructure:"blob" json:"blob"`
	Serve    ServeConfig    `mapstructure:"serve" json:"serve"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j" json:"neo4j"`
}

// LogConfig selects the zap logger flavour.
type LogConfig struct {
	Mode  string `mapstructure:"mode" json:"mode"` // production | development
	Level string `mapstructure:"level" json:"level"`
}

// ComputeConfig holds propagation settings.
type ComputeConfig struct {
	Strategy  string  `mapstructure:"strategy" json:"strategy"`
	Threshold float64 `mapstructure:"threshold" json:"threshold"`
}

// ReportConfig holds terminal report settings.
type ReportConfig struct {
	Locale string `mapstructure:"locale" json:"locale"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" json:"driver"` // postgres | pgx | sqlite
	URL      string `mapstructure:"url" json:"url"`
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	Name     string `mapstructure:"name" json:"name"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password,omitempty"`
	SSLMode  string `mapstructure:"sslmode" json:"sslmode"`
	Path     string `mapstructure:"path" json:"path"` // sqlite file
}

// BlobConfig selects where calculation files are stored.
type BlobConfig struct {
	Driver string       `mapstructure:"driver" json:"driver"` // fs | memory | s3
	Root   string       `mapstructure:"root" json:"root"`
	S3     BlobS3Config `mapstructure:"s3" json:"s3"`
}

// BlobS3Config holds S3 or MinIO settings.
type BlobS3Config struct {
	Bucket    string `mapstructure:"bucket" json:"bucket"`
	Region    string `mapstructure:"region" json:"region"`
	Endpoint  string `mapstructure:"endpoint" json:"endpoint"`
	PathStyle bool   `mapstructure:"path_style" json:"path_style"`
}

// ServeConfig holds HTTP server settings.
type ServeConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

// Neo4jConfig holds graph database settings for sync.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri" json:"uri"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password,omitempty"`
	Database string `mapstructure:"database" json:"database"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	// 1. Set defaults first (lowest precedence)
	setDefaults(v)

	// 2. Set up environment variable binding
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 3. Find and load config file
	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	// 4. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("snapshot", "")

	v.SetDefault("log.mode", "production")
	v.SetDefault("log.level", "info")

	v.SetDefault("compute.strategy", "paths")
	v.SetDefault("compute.threshold", 0.01)

	v.SetDefault("report.locale", "en")

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "prefer")
	v.SetDefault("database.path", "ownership.db")

	v.SetDefault("blob.driver", "fs")
	v.SetDefault("blob.root", ".")
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.region", "us-east-1")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.path_style", false)

	v.SetDefault("serve.addr", ":8080")

	v.SetDefault("neo4j.uri", "")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for ownership.yaml or ownership.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break // repo root
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil // No config found, use defaults
}

// DSN returns the database connection string for the configured driver.
//
// For sqlite it is the database file path. For postgres and pgx, database.url
// is returned as is when set; otherwise a postgres:// URL is built from the
// discrete fields.
func (c *Config) DSN() (string, error) {
	db := c.Database

	if db.Driver == "sqlite" {
		if db.URL != "" {
			return db.URL, nil
		}
		if db.Path == "" {
			return "", fmt.Errorf("database.path is required for the sqlite driver")
		}
		return db.Path, nil
	}

	if db.URL != "" {
		return db.URL, nil
	}

	if db.Host == "" {
		return "", fmt.Errorf("database.host is required when database.url is not set")
	}
	if db.Name == "" {
		return "", fmt.Errorf("database.name is required when database.url is not set")
	}
	if db.User == "" {
		return "", fmt.Errorf("database.user is required when database.url is not set")
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   "/" + db.Name,
	}

	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	} else {
		u.User = url.User(db.User)
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// ResolvedSnapshot returns the calculation file a command should read, with an
// explicit argument taking precedence over the snapshot setting.
func (c *Config) ResolvedSnapshot(arg string) string {
	if arg != "" {
		return arg
	}
	return c.Snapshot
}

// Redacted returns a copy of c with secrets blanked, for display.
func (c *Config) Redacted() Config {
	out := *c
	if out.Database.Password != "" {
		out.Database.Password = "********"
	}
	if out.Neo4j.Password != "" {
		out.Neo4j.Password = "********"
	}
	if out.Database.URL != "" {
		if u, err := url.Parse(out.Database.URL); err == nil && u.User != nil {
			if _, ok := u.User.Password(); ok {
				u.User = url.UserPassword(u.User.Username(), "********")
				out.Database.URL = u.String()
			}
		}
	}
	return out
}
