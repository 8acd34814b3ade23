package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultHost is used when neither a full URL nor a host:port pair is given.
const DefaultHost = "localhost:8069"

// Config holds the connection parameters for an Odoo server. URL takes
// precedence over Host when both are set. Database may be left empty, in
// which case the connector resolves it to the first database on the server
// that accepts the credentials.
type Config struct {
	URL      string
	Host     string
	Database string
	Username string
	Password string
}

// ServerURL normalizes URL/Host into a single service address. A host
// without a scheme gets "http://" prepended; trailing slashes are stripped
// so endpoint paths can be appended directly.
func (c Config) ServerURL() string {
	address := c.URL
	if address == "" {
		address = c.Host
		if address == "" {
			address = DefaultHost
		}
	}

	if !strings.Contains(address, "://") {
		address = "http://" + address
	}

	return strings.TrimRight(address, "/")
}

// Validate ensures credentials are present before any authenticated use.
func (c Config) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("required parameter username is not set")
	}
	if c.Password == "" {
		return fmt.Errorf("required parameter password is not set")
	}
	return nil
}

// FromEnv loads configuration from environment variables, reading a .env
// file first when one exists.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	config := Config{
		URL:      getEnv("ODOO_URL", ""),
		Host:     getEnv("ODOO_HOST", DefaultHost),
		Database: getEnv("ODOO_DB", ""),
		Username: getEnv("ODOO_USERNAME", ""),
		Password: getEnv("ODOO_PASSWORD", ""),
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
