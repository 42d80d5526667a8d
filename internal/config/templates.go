package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Position Guard Configuration

[exchange]
# Bitget REST endpoint
base_url = "https://api.bitget.com"
# Product type: UMCBL for USDT-margined perpetual futures
product_type = "UMCBL"
# Margin coin used for plan order payloads
margin_coin = "USDT"
# Per-request timeout
request_timeout = "10s"

[guard]
# Size-unit tolerance for comparing order and position sizes
tolerance = 0.0001
# Decimal places for trigger prices on replaced stop-losses
price_precision = 4
# Decimal places for sizes on replaced stop-losses
size_precision = 4
# Key identifying this account in the signal store
user_key = "default"
# Enable the persisted take-profit tracker
track_signals = true

[logging]
# Log level: debug, info, warn, error
level = "info"
console = true
file = true
`

const credentialsTemplate = `# Position Guard Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[bitget]
api_key = ""
api_secret = ""
passphrase = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
