package cmd

import (
	"errors"
	"fmt"
)

func validateClientEnabled(clientConfig map[string]interface{}) error {
	v, ok := clientConfig["enabled"]
	if !ok {
		// clients are enabled unless explicitly disabled
		return nil
	}

	enabled, ok := v.(bool)
	if !ok {
		return fmt.Errorf("client enabled flag is not a boolean: %v", v)
	}

	if !enabled {
		return errors.New("client is not enabled")
	}

	return nil
}

func getClientConfigString(key string, clientConfig map[string]interface{}) (*string, error) {
	v, ok := clientConfig[key]
	if !ok {
		return nil, fmt.Errorf("client config key not found: %q", key)
	}

	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("client config key is not a string: %q: %v", key, v)
	}

	return &s, nil
}
