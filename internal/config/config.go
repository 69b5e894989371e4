// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables, and
// an optional JSON config file.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the application.
type Options struct {
	// BackendHost is the host the recognition backend runs on.
	BackendHost string

	// BackendPort is the fixed service port of the recognition backend.
	BackendPort int

	// Secure selects https over http when talking to the backend.
	Secure bool

	// CredentialFile is the path of the persisted bearer credential.
	CredentialFile string

	// Facing selects the capture device orientation ("environment" or "user").
	Facing string

	// LogLevel sets the zap log level.
	LogLevel string

	// Config is the path to the config file.
	Config string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.BackendHost, "host", "localhost", "recognition backend host")
	flag.IntVar(&options.BackendPort, "port", 8000, "recognition backend port")
	flag.BoolVar(&options.Secure, "secure", false, "use https when talking to the backend")
	flag.StringVar(&options.CredentialFile, "credential", "", "path to the stored credential (default: user config dir)")
	flag.StringVar(&options.Facing, "facing", "environment", "capture device facing: environment or user")
	flag.StringVar(&options.LogLevel, "loglevel", "info", "log level: debug, info, warn, error")
	flag.StringVar(&options.Config, "config", "", "path to config file")
	flag.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
}

// Parse parses the command-line flags, an optional .env file, and
// environment variables to set configuration values. It returns a pointer
// to the Options struct containing the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// A missing .env file is fine; values come from flags and the real env.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if host := os.Getenv("CARDSCOPE_HOST"); host != "" {
		options.BackendHost = host
	}
	if level := os.Getenv("CARDSCOPE_LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}
	if cred := os.Getenv("CARDSCOPE_CREDENTIAL_FILE"); cred != "" {
		options.CredentialFile = cred
	}

	if options.CredentialFile == "" {
		options.CredentialFile = defaultCredentialFile()
	}

	return options
}

// defaultCredentialFile places the credential under the user config
// directory, falling back to the working directory when it is unknown.
func defaultCredentialFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "credential.json"
	}
	return filepath.Join(dir, "cardscope", "credential.json")
}
