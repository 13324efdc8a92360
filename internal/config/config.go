// Package config centralises configuration parsing for the reports service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces every variable read by the service, e.g.
// REPORTS_DATABASE.HOST maps to Config.Database.Host.
const envPrefix = "REPORTS_"

// Config captures runtime configuration values for the reports service.
type Config struct {
	Server    ServerConfig   `koanf:"server"`
	Database  DatabaseConfig `koanf:"database"`
	Report    ReportConfig   `koanf:"report"`
	CORS      CORSConfig     `koanf:"cors"`
	Subdomain SubConfig      `koanf:"subdomains"`
	Debug     bool           `koanf:"debug"`
}

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Address      string        `koanf:"address" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"gt=0"`
}

// DatabaseConfig holds the MySQL server coordinates shared by every
// subdomain database. Only the database name varies per subdomain.
type DatabaseConfig struct {
	Host         string        `koanf:"host" validate:"required"`
	Port         int           `koanf:"port" validate:"gt=0,lte=65535"`
	User         string        `koanf:"user" validate:"required"`
	Password     string        `koanf:"password"`
	ConnTimeout  time.Duration `koanf:"conn_timeout" validate:"gt=0"`
	QueryTimeout time.Duration `koanf:"query_timeout" validate:"gt=0"`
}

// ReportConfig controls report generation behavior.
type ReportConfig struct {
	// Concurrency bounds how many subdomain databases are queried at once.
	Concurrency int `koanf:"concurrency" validate:"gt=0"`
	// Timeout caps a full report generation pass across all subdomains.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	// ProbeSample is how many subdomains the connectivity probe exercises.
	ProbeSample int `koanf:"probe_sample" validate:"gt=0"`
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins" validate:"min=1"`
}

// SubConfig points at the subdomain map file.
type SubConfig struct {
	File string `koanf:"file" validate:"required"`
}

// Load reads environment variables into Config, applying defaults for local
// dev, then validates the result.
func Load() (Config, error) {
	cfg := defaults()

	k := koanf.New(".")
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Address:      ":8001",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         3306,
			User:         "root",
			Password:     "password",
			ConnTimeout:  5 * time.Second,
			QueryTimeout: 30 * time.Second,
		},
		Report: ReportConfig{
			Concurrency: 4,
			Timeout:     5 * time.Minute,
			ProbeSample: 5,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Subdomain: SubConfig{
			File: "static/subdomains.json",
		},
	}
}
