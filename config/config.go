// Package config reads the chaincode process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the settings for launching the chaincode.
type Config struct {
	// CCID and Address are both required for chaincode-as-a-service mode.
	CCID    string
	Address string

	TLSDisabled  bool
	TLSKeyFile   string
	TLSCertFile  string
	ClientCAFile string

	// LogSpec is a flogging spec such as "info" or "vaxtrace.registry=debug:info".
	LogSpec string
}

// dotenvPath is optional; a missing file is skipped.
var dotenvPath = ".env"

// DefaultLogSpec is used when CHAINCODE_LOG_SPEC is unset.
const DefaultLogSpec = "info"

// Load reads an optional .env file and then the process environment. Values
// already present in the environment win over the .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", dotenvPath, err)
	}

	cfg := &Config{
		CCID:         strings.TrimSpace(os.Getenv("CHAINCODE_ID")),
		Address:      strings.TrimSpace(os.Getenv("CHAINCODE_SERVER_ADDRESS")),
		TLSKeyFile:   os.Getenv("CHAINCODE_TLS_KEY_FILE"),
		TLSCertFile:  os.Getenv("CHAINCODE_TLS_CERT_FILE"),
		ClientCAFile: os.Getenv("CHAINCODE_CLIENT_CA_CERT_FILE"),
		LogSpec:      getEnv("CHAINCODE_LOG_SPEC", DefaultLogSpec),
	}

	tlsDisabled, err := getBool("CHAINCODE_TLS_DISABLED", true)
	if err != nil {
		return nil, err
	}
	cfg.TLSDisabled = tlsDisabled

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ServerMode reports whether the chaincode should run as an external service
// instead of being launched by the peer.
func (c *Config) ServerMode() bool {
	return c.CCID != "" && c.Address != ""
}

// Validate checks that the settings are consistent with each other.
func (c *Config) Validate() error {
	if (c.CCID == "") != (c.Address == "") {
		return errors.New("config: CHAINCODE_ID and CHAINCODE_SERVER_ADDRESS must be set together")
	}
	if c.ServerMode() && !c.TLSDisabled {
		if c.TLSKeyFile == "" || c.TLSCertFile == "" {
			return errors.New("config: TLS enabled but CHAINCODE_TLS_KEY_FILE or CHAINCODE_TLS_CERT_FILE is empty")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s=%q is not a boolean: %w", key, v, err)
	}
	return b, nil
}
