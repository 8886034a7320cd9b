package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mzheleznov/profilehub/internal/flagx"
	"github.com/mzheleznov/profilehub/internal/timex"
)

// JsonConfig is the JSON-file DTO for client configuration. It uses
// timex.Duration for interval fields, which allows parsing both string
// values such as "30s" and integer nanoseconds.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; when neither is set, no JSON file is loaded.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.ServerURL = c.ServerURL
	config.RequestTimeout = time.Duration(c.RequestTimeout.Duration)
}
