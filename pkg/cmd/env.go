package cmd

import (
	"log/slog"

	"github.com/joho/godotenv"
)

var dotEnvPaths = []string{".env", "../.env"}

// LoadDotEnv loads the first .env file found. Variables already set in the environment win.
func LoadDotEnv(logger *slog.Logger) {
	for _, p := range dotEnvPaths {
		if err := godotenv.Load(p); err == nil {
			logger.Debug("Loaded .env", "path", p)

			return
		}
	}
}
