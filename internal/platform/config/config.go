// Package config assembles the service configuration from an optional
// YAML file overlaid with environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sikt-tools/provgen/internal/platform/auth"
	"github.com/sikt-tools/provgen/internal/platform/env"
	"github.com/sikt-tools/provgen/internal/platform/objectstore"
)

const (
	StoreFS = "fs"
	StoreS3 = "s3"
)

type Config struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// WorkDir holds the per-run session arenas; ArchiveDir holds
	// finished archives when the fs store backend is active.
	WorkDir    string `yaml:"work_dir"`
	ArchiveDir string `yaml:"archive_dir"`

	PasswordLength int `yaml:"password_length"`

	Workbook WorkbookConfig `yaml:"workbook"`
	Store    StoreConfig    `yaml:"store"`
	Auth     auth.Config    `yaml:"auth"`
}

type WorkbookConfig struct {
	// TemplatePath switches the composer to template mode when set.
	TemplatePath  string `yaml:"template_path"`
	TemplateSheet string `yaml:"template_sheet"`
}

type StoreConfig struct {
	Backend string             `yaml:"backend"`
	S3      objectstore.Config `yaml:"s3"`
}

func Default() Config {
	return Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
		WorkDir:         filepath.Join(os.TempDir(), "provgen", "work"),
		ArchiveDir:      filepath.Join(os.TempDir(), "provgen", "archives"),
		PasswordLength:  15,
		Workbook: WorkbookConfig{
			TemplateSheet: "Users",
		},
		Store: StoreConfig{Backend: StoreFS},
		Auth:  auth.Config{Mode: auth.ModeNone},
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Addr = env.String("PROVGEN_ADDR", c.Addr)
	c.WorkDir = env.String("PROVGEN_WORK_DIR", c.WorkDir)
	c.ArchiveDir = env.String("PROVGEN_ARCHIVE_DIR", c.ArchiveDir)
	c.Workbook.TemplatePath = env.String("PROVGEN_TEMPLATE_PATH", c.Workbook.TemplatePath)
	c.Workbook.TemplateSheet = env.String("PROVGEN_TEMPLATE_SHEET", c.Workbook.TemplateSheet)
	c.Store.Backend = env.String("PROVGEN_STORE_BACKEND", c.Store.Backend)
	c.Store.S3.Endpoint = env.String("PROVGEN_S3_ENDPOINT", c.Store.S3.Endpoint)
	c.Store.S3.AccessKey = env.String("PROVGEN_S3_ACCESS_KEY", c.Store.S3.AccessKey)
	c.Store.S3.SecretKey = env.String("PROVGEN_S3_SECRET_KEY", c.Store.S3.SecretKey)
	c.Store.S3.Region = env.String("PROVGEN_S3_REGION", c.Store.S3.Region)
	c.Store.S3.Bucket = env.String("PROVGEN_S3_BUCKET", c.Store.S3.Bucket)
	c.Auth.Mode = env.String("PROVGEN_AUTH_MODE", c.Auth.Mode)
	c.Auth.IssuerURL = env.String("PROVGEN_OIDC_ISSUER_URL", c.Auth.IssuerURL)
	c.Auth.ClientID = env.String("PROVGEN_OIDC_CLIENT_ID", c.Auth.ClientID)

	var err error
	if c.ShutdownTimeout, err = env.Duration("PROVGEN_SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		return err
	}
	if c.PasswordLength, err = env.Int("PROVGEN_PASSWORD_LENGTH", c.PasswordLength); err != nil {
		return err
	}
	useSSL, err := env.Bool("PROVGEN_S3_USE_SSL", c.Store.S3.UseSSL)
	if err != nil {
		return err
	}
	c.Store.S3.UseSSL = useSSL
	return nil
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.WorkDir == "" {
		return errors.New("work_dir is required")
	}
	if c.PasswordLength < 3 {
		return fmt.Errorf("password_length must be at least 3 (got %d)", c.PasswordLength)
	}
	switch c.Store.Backend {
	case StoreFS:
		if c.ArchiveDir == "" {
			return errors.New("archive_dir is required for the fs store")
		}
	case StoreS3:
		if err := c.Store.S3.Validate(); err != nil {
			return fmt.Errorf("store.s3: %w", err)
		}
	default:
		return fmt.Errorf("unsupported store backend %q", c.Store.Backend)
	}
	return c.Auth.Validate()
}
