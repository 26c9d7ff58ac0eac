package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	// RedisURL enables the ministry rollup cache when non-empty.
	RedisURL string

	// SweepSpec is the cron expression for the overdue/projection sweep.
	// Empty disables the scheduler.
	SweepSpec string

	// CatalogDir is scanned for YAML course files at startup when non-empty.
	CatalogDir string

	SiteID string

	JWTSecret     string
	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

// yamlOverlay mirrors the subset of Config that deployments may pin in a
// file. Env vars win over the file.
type yamlOverlay struct {
	Mode       string `yaml:"mode"`
	HTTPAddr   string `yaml:"http_addr"`
	DBDriver   string `yaml:"db_driver"`
	DBDSN      string `yaml:"db_dsn"`
	RedisURL   string `yaml:"redis_url"`
	SweepSpec  string `yaml:"sweep_spec"`
	CatalogDir string `yaml:"catalog_dir"`
	SiteID     string `yaml:"site_id"`
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		RedisURL:           envOr("REDIS_URL", ""),
		SweepSpec:          envOr("SWEEP_SPEC", "15 2 * * *"),
		CatalogDir:         envOr("CATALOG_DIR", ""),
		SiteID:             envOr("SITE_ID", "local"),
		JWTSecret:          envOr("JWT_SECRET", "dev-secret-change-me"),
		AdminUser:          envOr("ADMIN_USER", "admin"),
		AdminPassHash:      envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://lms.learnpath.dev"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:3010"),
	}
}

// Load builds the config from the env, optionally overlaid under a YAML file
// named by CONFIG_FILE. File values fill only fields the env left at their
// defaults' zero counterpart, so `MODE=online` still beats the file.
func Load() (Config, error) {
	cfg := FromEnv()
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var o yamlOverlay
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	overlay := func(envKey, fileVal string, dst *string) {
		if os.Getenv(envKey) == "" && fileVal != "" {
			*dst = fileVal
		}
	}
	if os.Getenv("MODE") == "" && o.Mode != "" {
		cfg.Mode = Mode(o.Mode)
	}
	overlay("HTTP_ADDR", o.HTTPAddr, &cfg.HTTPAddr)
	overlay("DB_DRIVER", o.DBDriver, &cfg.DBDriver)
	overlay("DB_DSN", o.DBDSN, &cfg.DBDSN)
	overlay("REDIS_URL", o.RedisURL, &cfg.RedisURL)
	overlay("SWEEP_SPEC", o.SweepSpec, &cfg.SweepSpec)
	overlay("CATALOG_DIR", o.CatalogDir, &cfg.CatalogDir)
	overlay("SITE_ID", o.SiteID, &cfg.SiteID)
	return cfg, nil
}

func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
