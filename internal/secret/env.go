package secret

import (
	"fmt"
	"os"
	"strings"
)

// EnvStore reads secrets from environment variables named
// BLOCKPAD_SECRET_<KEY>, with the key upper-cased and dashes turned into
// underscores.
type EnvStore struct{}

func NewEnvStore() *EnvStore {
	return &EnvStore{}
}

func envName(key string) string {
	return "BLOCKPAD_SECRET_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

func (e *EnvStore) Set(key string, value []byte) error {
	if err := os.Setenv(envName(key), string(value)); err != nil {
		return fmt.Errorf("env set: %w", err)
	}
	return nil
}

func (e *EnvStore) Get(key string) ([]byte, error) {
	v := os.Getenv(envName(key))
	if v == "" {
		return nil, nil
	}
	return []byte(v), nil
}

func (e *EnvStore) Delete(key string) error {
	return os.Unsetenv(envName(key))
}
