// Package config loads the server configuration from environment variables.
// Loads from .env file (godotenv), maps to Config struct via go-simpler/env
// struct tags.
package config
