package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/projpool/projpool/internal/gemini"
	"github.com/projpool/projpool/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultCORSOrigins  = "*"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseURL string

	// Key to sign JWT tokens with
	JWTSecretKey string

	// Cloud Storage bucket project images live in
	GCSBucketName string

	// Vertex AI settings of the Gemini assist
	GoogleCloudProjectID string
	GeminiModelID        string
	GeminiLocation       string
	GeminiAPIKey         string

	// Comma separated origins allowed to call API from browser
	CORSAllowedOrigins string

	// Whether admin routes to inspect and run background jobs are exposed
	SchedulerAPIEnabled bool

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:            defaultLoggingLevel,
		ListenAddr:          defaultListenAddr,
		GeminiLocation:      gemini.DefaultLocation,
		CORSAllowedOrigins:  defaultCORSOrigins,
		SchedulerAPIEnabled: true,
		Environment:         defaultEnvironment,
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
	setBool := func(o *bool) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*o = b
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":                  setString(&c.ListenAddr),
		"DATABASE_URL":                 setString(&c.DatabaseURL),
		"JWT_SECRET_KEY":               setString(&c.JWTSecretKey),
		"GCS_BUCKET_NAME":              setString(&c.GCSBucketName),
		"GOOGLE_CLOUD_PROJECT_ID":      setString(&c.GoogleCloudProjectID),
		"GOOGLE_CLOUD_GEMINI_MODEL_ID": setString(&c.GeminiModelID),
		"GOOGLE_CLOUD_LOCATION":        setString(&c.GeminiLocation),
		"GOOGLE_CLOUD_API_KEY":         setString(&c.GeminiAPIKey),
		"CORS_ALLOWED_ORIGINS":         setString(&c.CORSAllowedOrigins),
		"SCHEDULER_API_ENABLED":        setBool(&c.SchedulerAPIEnabled),
		"LOG_LEVEL":                    setString(&c.LogLevel),
		"ENVIRONMENT":                  setString(&c.Environment),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, errors.New(key+": "+err.Error()))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("projpool", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseURL, "database", "d", c.DatabaseURL, "Database connection string")
	fs.StringVarP(&c.JWTSecretKey, "jwt-secret-key", "s", c.JWTSecretKey, "Key to sign JWT tokens with")
	fs.StringVar(&c.GCSBucketName, "gcs-bucket", c.GCSBucketName, "Cloud Storage bucket for project images")
	fs.StringVar(&c.GoogleCloudProjectID, "gcp-project", c.GoogleCloudProjectID, "Google Cloud project id")
	fs.StringVar(&c.GeminiModelID, "gemini-model", c.GeminiModelID, "Gemini model id")
	fs.StringVar(&c.GeminiLocation, "gcp-location", c.GeminiLocation, "Vertex AI location")
	fs.StringVar(&c.GeminiAPIKey, "gcp-api-key", c.GeminiAPIKey, "Vertex AI access token")
	fs.StringVar(&c.CORSAllowedOrigins, "cors-origins", c.CORSAllowedOrigins, "Comma separated allowed CORS origins")
	fs.BoolVar(&c.SchedulerAPIEnabled, "scheduler-api", c.SchedulerAPIEnabled, "Expose admin routes of the scheduler")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}

// Validate required options
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecretKey == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) corsOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c *Config) geminiConfig() gemini.Config {
	return gemini.Config{
		ProjectID: c.GoogleCloudProjectID,
		Location:  c.GeminiLocation,
		ModelID:   c.GeminiModelID,
		APIKey:    c.GeminiAPIKey,
	}
}
