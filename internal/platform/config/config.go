package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultEventsTopic        = "order-events"
	defaultEventsSubscription = "order-events-dispatcher"

	defaultNumberPollAttempts = 5
	defaultNumberPollInterval = 250 * time.Millisecond
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server        ServerConfig
	Firestore     FirestoreConfig
	PubSub        PubSubConfig
	Mail          MailConfig
	Notifications NotificationConfig
	Polling       PollingConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// AdminToken guards administrative endpoints. The actual identity system
	// lives outside this service; the token is its capability handed to us.
	AdminToken string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PubSubConfig names the event topic and the dispatcher subscription.
type PubSubConfig struct {
	ProjectID    string
	EventsTopic  string
	Subscription string
}

// MailConfig holds the transactional email transport settings. APIKey may be
// a secret reference resolved at load time.
type MailConfig struct {
	APIKey      string
	FromAddress string
	FromName    string
}

// NotificationConfig controls admin alert recipients. Admins is the raw
// configured address string (whitespace/comma/semicolon separated), Excluded
// lists addresses removed before sending, Fallback is used when filtering
// leaves nothing.
type NotificationConfig struct {
	Admins   string
	Excluded []string
	Fallback []string
}

// PollingConfig bounds the client-side allocation poller.
type PollingConfig struct {
	Attempts int
	Interval time.Duration
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts a function to the SecretResolver interface.
type SecretResolverFunc func(ctx context.Context, ref string) (string, error)

// ResolveSecret implements SecretResolver.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError reports configuration fields that failed validation.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid fields: %s", strings.Join(e.fields, ", "))
}

// Fields returns the names of the invalid configuration fields.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises configuration loading.
type Option func(*loadOptions)

type loadOptions struct {
	envFile     string
	envMap      map[string]string
	skipSystem  bool
	resolver    SecretResolver
	requireMail bool
}

// WithEnvFile overrides the dotenv file consulted before system env vars.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) { o.envFile = path }
}

// WithEnvMap supplies explicit values taking precedence over the environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loadOptions) { o.envMap = values }
}

// WithoutSystemEnv disables reading the process environment. Mostly for tests.
func WithoutSystemEnv() Option {
	return func(o *loadOptions) { o.skipSystem = true }
}

// WithSecretResolver installs a resolver for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loadOptions) { o.resolver = resolver }
}

// WithRequiredMail makes a missing mail API key a load-time error instead of
// deferring the failure to the first send.
func WithRequiredMail() Option {
	return func(o *loadOptions) { o.requireMail = true }
}

// Load reads configuration from the dotenv file, the process environment, and
// any explicit overrides, resolves secret references, and validates the result.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loadOptions{envFile: defaultEnvFile}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	fileValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if v, ok := options.envMap[key]; ok {
				return v, true
			}
		}
		if !options.skipSystem {
			if v, ok := os.LookupEnv(key); ok && v != "" {
				return v, true
			}
		}
		if v, ok := fileValues[key]; ok {
			return v, true
		}
		return "", false
	}

	apiKey, err := resolveSecret(ctx, stringWithDefault(lookup, "MAIL_API_KEY", ""), options.resolver)
	if err != nil {
		return Config{}, err
	}

	fallback := csvWithDefault(lookup, "NOTIFY_FALLBACK_RECIPIENTS")
	if len(fallback) == 0 {
		fallback = []string{"hof@feldhof.example"}
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			AdminToken:   stringWithDefault(lookup, "ADMIN_API_TOKEN", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "FIRESTORE_PROJECT_ID", stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", "")),
			EmulatorHost: stringWithDefault(lookup, "FIRESTORE_EMULATOR_HOST", ""),
		},
		PubSub: PubSubConfig{
			ProjectID:    stringWithDefault(lookup, "PUBSUB_PROJECT_ID", stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", "")),
			EventsTopic:  stringWithDefault(lookup, "PUBSUB_EVENTS_TOPIC", defaultEventsTopic),
			Subscription: stringWithDefault(lookup, "PUBSUB_EVENTS_SUBSCRIPTION", defaultEventsSubscription),
		},
		Mail: MailConfig{
			APIKey:      apiKey,
			FromAddress: stringWithDefault(lookup, "MAIL_FROM_ADDRESS", ""),
			FromName:    stringWithDefault(lookup, "MAIL_FROM_NAME", "Feldhof"),
		},
		Notifications: NotificationConfig{
			Admins:   stringWithDefault(lookup, "NOTIFY_ADMIN_RECIPIENTS", ""),
			Excluded: csvWithDefault(lookup, "NOTIFY_EXCLUDED_RECIPIENTS"),
			Fallback: fallback,
		},
		Polling: PollingConfig{
			Attempts: intWithDefault(lookup, "NUMBER_POLL_ATTEMPTS", defaultNumberPollAttempts),
			Interval: durationWithDefault(lookup, "NUMBER_POLL_INTERVAL", defaultNumberPollInterval),
		},
	}

	if err := validateConfig(cfg, options.requireMail); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "secret://") {
		return trimmed, nil
	}
	if resolver == nil {
		return "", fmt.Errorf("config: secret reference %q requires a resolver", redact(trimmed))
	}
	resolved, err := resolver.ResolveSecret(ctx, strings.TrimPrefix(trimmed, "secret://"))
	if err != nil {
		return "", fmt.Errorf("config: resolve secret %q: %w", redact(trimmed), err)
	}
	return strings.TrimSpace(resolved), nil
}

func validateConfig(cfg Config, requireMail bool) error {
	var invalid []string
	if cfg.Server.Port == "" {
		invalid = append(invalid, "server.port")
	}
	if cfg.Polling.Attempts <= 0 {
		invalid = append(invalid, "polling.attempts")
	}
	if cfg.Polling.Interval <= 0 {
		invalid = append(invalid, "polling.interval")
	}
	if requireMail {
		if cfg.Mail.APIKey == "" {
			invalid = append(invalid, "mail.apiKey")
		}
		if cfg.Mail.FromAddress == "" {
			invalid = append(invalid, "mail.fromAddress")
		}
	}
	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func redact(ref string) string {
	if len(ref) <= 12 {
		return "secret://…"
	}
	return ref[:12] + "…"
}

func loadDotEnv(path string) (map[string]string, error) {
	values := make(map[string]string)
	if path == "" {
		return values, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("config: open env file %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		if key != "" {
			values[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read env file %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if v, ok := lookup(key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if v, ok := lookup(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
