// Package env provides a fieldcrypt.KeySource backed by environment
// variables, for deployments where the orchestrator injects secrets into
// the process environment.
package env

import (
	"context"
	"fmt"
	"os"

	"github.com/helioscare/fieldcrypt"
)

// Source reads secrets from the process environment.
type Source struct{}

func New() Source {
	return Source{}
}

// GetSecret returns the value of the named environment variable. An unset
// or empty variable is an error: a missing key must abort startup, not
// silently disable encryption.
func (Source) GetSecret(_ context.Context, name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set",
			fieldcrypt.ErrSecretSourceUnavailable, name)
	}
	return value, nil
}
