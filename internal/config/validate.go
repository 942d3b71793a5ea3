package config

import (
	"errors"
	"fmt"
	"slices"
)

// Validate проверяет общие поля конфигурации.
//
// Поля, нужные только одному процессу, проверяются
// методами ValidateWorker и ValidateAPI.
func (c *Config) Validate() error {
	if c.AMQP.URL == "" {
		return errors.New("amqp.url must be set")
	}
	if c.AMQP.TaskQueue == "" || c.AMQP.ResultQueue == "" {
		return errors.New("amqp.task_queue and amqp.result_queue must be set")
	}
	if c.AMQP.TaskQueue == c.AMQP.ResultQueue {
		return errors.New("amqp.task_queue and amqp.result_queue must differ")
	}
	if c.AMQP.Prefetch < 1 {
		return errors.New("amqp.prefetch must be positive")
	}
	if !slices.Contains([]string{"DEBUG", "INFO", "WARN", "ERROR"}, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of DEBUG, INFO, WARN, ERROR, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

// ValidateWorker проверяет поля, нужные worker'у.
func (c *Config) ValidateWorker() error {
	if c.Catalog.APIURL == "" {
		return errors.New("catalog.api_url is required (CATALOG_API_URL)")
	}
	if c.Catalog.XServerURL == "" {
		return errors.New("catalog.x_server_url is required (X_SERVER_URL)")
	}
	if c.Session.SecretKey == "" {
		return errors.New("session.secret_key is required (SESSION_SECRET_KEY)")
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required for component batches (DB_URL)")
	}
	if c.Worker.MinTaskInterval < 0 {
		return errors.New("worker.min_task_interval must not be negative")
	}
	if c.Worker.SlowProcessingWait <= 0 {
		return errors.New("worker.slow_processing_wait must be positive")
	}
	if c.Worker.HealthRetryInterval <= 0 {
		return errors.New("worker.health_retry_interval must be positive")
	}
	if c.Worker.HealthMaxAttempts < 0 {
		return errors.New("worker.health_max_attempts must not be negative")
	}
	return nil
}

// ValidateAPI проверяет поля, нужные API.
func (c *Config) ValidateAPI() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required (DB_URL)")
	}
	if c.Session.SecretKey == "" {
		return errors.New("session.secret_key is required (SESSION_SECRET_KEY)")
	}
	if c.API.Port <= 0 {
		return errors.New("api.port must be positive")
	}
	return nil
}
