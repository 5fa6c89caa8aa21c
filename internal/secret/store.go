package secret

// SecretStore holds sensitive values such as the document store password.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// Lookup returns the first non-empty value for key, trying stores in order.
func Lookup(key string, stores ...SecretStore) (string, error) {
	for _, s := range stores {
		v, err := s.Get(key)
		if err != nil {
			return "", err
		}
		if len(v) > 0 {
			return string(v), nil
		}
	}
	return "", nil
}
