package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/doccollab/internal/logger"
)

// Credential store backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

const (
	defaultAPIURL       = "http://localhost:8080/api"
	defaultLoggingLevel = logger.LevelWarn
	defaultEnvironment  = logger.EnvDevelopment
	defaultBackend      = BackendFile
	defaultLeadTime     = 9 * time.Minute
	defaultPollInterval = 30 * time.Second
)

type Config struct {
	// Base url of the document collaboration API
	APIURL string

	// Default logging level
	LogLevel string

	// Environment
	Environment string

	// Where tokens are kept between runs: file, postgres or memory
	CredentialsBackend string

	// Credentials file for 'file' backend
	// If empty file in user config directory is used
	CredentialsFile string

	// Database to connect to for 'postgres' backend
	DatabaseDSN string

	// Device the credentials belong to for 'postgres' backend
	// If empty it is derived from host name
	DeviceID string

	// Delay between obtaining access token and proactive renewal
	LeadTime time.Duration

	// Interval between notification polls in 'watch' command
	PollInterval time.Duration
}

func NewConfig() *Config {
	return &Config{
		APIURL:             defaultAPIURL,
		LogLevel:           defaultLoggingLevel,
		Environment:        defaultEnvironment,
		CredentialsBackend: defaultBackend,
		LeadTime:           defaultLeadTime,
		PollInterval:       defaultPollInterval,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"DOCCOLLAB_API_URL":             setString(&c.APIURL),
		"DOCCOLLAB_LOG_LEVEL":           setString(&c.LogLevel),
		"DOCCOLLAB_ENVIRONMENT":         setString(&c.Environment),
		"DOCCOLLAB_CREDENTIALS_BACKEND": setString(&c.CredentialsBackend),
		"DOCCOLLAB_CREDENTIALS_FILE":    setString(&c.CredentialsFile),
		"DOCCOLLAB_DATABASE_URI":        setString(&c.DatabaseDSN),
		"DOCCOLLAB_DEVICE_ID":           setString(&c.DeviceID),
		"DOCCOLLAB_RENEW_LEAD_TIME":     setDuration(&c.LeadTime),
		"DOCCOLLAB_POLL_INTERVAL":       setDuration(&c.PollInterval),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("error while parsing %s. Err: %w", key, err)
		}
	}
	return nil
}

// ParseFlags parses options given before command and returns the command with its arguments
func (c *Config) ParseFlags(args []string) ([]string, error) {
	fs := pflag.NewFlagSet("doccollab", pflag.ContinueOnError)
	fs.SetInterspersed(false)

	fs.StringVarP(&c.APIURL, "api-url", "u", c.APIURL, "API base url")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.CredentialsBackend, "credentials", "b", c.CredentialsBackend, "Credentials backend (file, postgres, memory)")
	fs.StringVarP(&c.CredentialsFile, "credentials-file", "f", c.CredentialsFile, "Credentials file for 'file' backend")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string for 'postgres' backend")
	fs.StringVar(&c.DeviceID, "device-id", c.DeviceID, "Device id (uuid) for 'postgres' backend")
	fs.DurationVar(&c.LeadTime, "lead-time", c.LeadTime, "Delay between obtaining access token and its renewal")
	fs.DurationVar(&c.PollInterval, "poll-interval", c.PollInterval, "Interval between notification polls")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}
