package backend

import (
	"errors"
	"fmt"

	"spendview/internal/config"
)

// FromAppConfig picks the backend settings out of the process config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	loc, err := appConfig.Location()
	if err != nil {
		return Config{}, err
	}

	c := Config{
		Type:            BackendType(appConfig.DataBackend),
		APIBaseURL:      appConfig.APIBaseURL,
		APIToken:        appConfig.APIToken,
		UpstreamTimeout: appConfig.UpstreamTimeout,
		Location:        loc,
		SQLiteDBPath:    appConfig.SQLiteDBPath,
		AMQPURL:         appConfig.AMQPURL,
		AMQPExchange:    appConfig.AMQPExchange,
		AMQPQueue:       appConfig.AMQPQueue,
		DataDirectory:   appConfig.DataDir,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks that the settings the chosen backend needs are present.
// AMQP stays optional for sqlite and an empty DataDirectory means "data".
func (c Config) Validate() error {
	var missing string
	switch c.Type {
	case APIBackend:
		if c.APIBaseURL == "" {
			missing = "API_BASE_URL"
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			missing = "SQLITE_DB_PATH"
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid backend type: %q", c.Type)
	}
	if missing != "" {
		return fmt.Errorf("%s backend needs %s", c.Type, missing)
	}
	return nil
}
