package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// EnvVar selects the logger flavour: "dev" gives human-readable output.
const EnvVar = "ADVISER_ENV"

// New builds the process logger for env. Unknown values use production JSON.
func New(env string) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if strings.ToLower(env) == "dev" {
		logger, err = zap.NewDevelopment(zap.AddStacktrace(zap.ErrorLevel))
	} else {
		logger, err = zap.NewProduction(
			zap.AddStacktrace(zap.ErrorLevel),
			zap.Fields(zap.String("env", env)),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger.Sugar(), nil
}

// FromEnv builds the logger selected by ADVISER_ENV.
func FromEnv() (*zap.SugaredLogger, error) {
	return New(os.Getenv(EnvVar))
}
