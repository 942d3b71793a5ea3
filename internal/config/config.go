package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// AMQP — брокер и очереди.
type AMQP struct {
	URL         string `toml:"url"`
	TaskQueue   string `toml:"task_queue"`
	ResultQueue string `toml:"result_queue"`
	Prefetch    int    `toml:"prefetch"`
}

// Catalog — API каталога и X-server индексов.
type Catalog struct {
	APIURL           string   `toml:"api_url"`
	XServerURL       string   `toml:"x_server_url"`
	XServerBase      string   `toml:"x_server_base"`
	HealthURL        string   `toml:"health_url"`
	RequestTimeout   int      `toml:"request_timeout"`
	HostNamespace    string   `toml:"host_namespace"`
	ProtectedClasses []string `toml:"protected_classifications"`
	LocalIDIndex     string   `toml:"local_id_index"`
	CrossRefIndex    string   `toml:"cross_ref_index"`
	ComponentIndex   string   `toml:"component_index"`
}

// Worker — темп обработки и проверка здоровья каталога.
type Worker struct {
	MinTaskInterval     int `toml:"min_task_interval"`
	SlowProcessingWait  int `toml:"slow_processing_wait"`
	HealthRetryInterval int `toml:"health_retry_interval"`
	HealthMaxAttempts   int `toml:"health_max_attempts"`
	Port                int `toml:"port"`
}

// Database — хранилище пакетов и результатов.
type Database struct {
	URL string `toml:"url"`
}

// Session — шифрование токенов сессии.
type Session struct {
	SecretKey string `toml:"secret_key"`
}

// API — HTTP API приёма пакетов.
type API struct {
	Port int `toml:"port"`
}

// Logging — формат и уровень логов.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config — конфигурация всех процессов Poistot.
//
// Секции:
//   - AMQP: брокер и имена очередей
//   - Catalog: API каталога, X-server, индексы
//   - Worker: пауза между tasks, повтор проверки здоровья
//   - Database: PostgreSQL для пакетов (API и сборщик результатов)
//   - Session: ключ токенов сессии
//   - API: порт HTTP API
//   - Logging: формат и уровень
type Config struct {
	AMQP     AMQP     `toml:"amqp"`
	Catalog  Catalog  `toml:"catalog"`
	Worker   Worker   `toml:"worker"`
	Database Database `toml:"database"`
	Session  Session  `toml:"session"`
	API      API      `toml:"api"`
	Logging  Logging  `toml:"logging"`
}

// Load читает конфигурацию из файла (если он есть), затем применяет
// переменные окружения и проверяет результат.
//
// Пустой path — только значения по умолчанию и окружение.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("config file not found: %s", path)
		case err != nil:
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv переопределяет значения переменными окружения.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"AMQP_URL":           &c.AMQP.URL,
		"DB_URL":             &c.Database.URL,
		"CATALOG_API_URL":    &c.Catalog.APIURL,
		"X_SERVER_URL":       &c.Catalog.XServerURL,
		"SESSION_SECRET_KEY": &c.Session.SecretKey,
		"LOG_LEVEL":          &c.Logging.Level,
		"LOG_FORMAT":         &c.Logging.Format,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MIN_TASK_INTERVAL_SECONDS": &c.Worker.MinTaskInterval,
		"WORKER_PORT":               &c.Worker.Port,
		"API_PORT":                  &c.API.Port,
	}
	for name, dst := range ints {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer, got %q", name, v)
		}
		*dst = n
	}

	return nil
}

func (c *Config) normalize() {
	c.Catalog.APIURL = strings.TrimRight(strings.TrimSpace(c.Catalog.APIURL), "/")
	c.Catalog.XServerURL = strings.TrimRight(strings.TrimSpace(c.Catalog.XServerURL), "/")
	if c.Catalog.HealthURL == "" {
		c.Catalog.HealthURL = c.Catalog.APIURL
	}
	c.Logging.Level = strings.ToUpper(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// MinTaskIntervalDuration — минимальное время между началом tasks.
func (w Worker) MinTaskIntervalDuration() time.Duration {
	return time.Duration(w.MinTaskInterval) * time.Second
}

// SlowProcessingWaitDuration — пауза, если task обрабатывалась дольше минимума.
func (w Worker) SlowProcessingWaitDuration() time.Duration {
	return time.Duration(w.SlowProcessingWait) * time.Second
}

// HealthRetryIntervalDuration — пауза между проверками здоровья.
func (w Worker) HealthRetryIntervalDuration() time.Duration {
	return time.Duration(w.HealthRetryInterval) * time.Second
}

// RequestTimeoutDuration — таймаут запросов к каталогу.
func (c Catalog) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}
