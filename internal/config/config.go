package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultTimezone = "UTC"

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string
	// SubscriberBackend: postgres（默认，Redis 仅做列表缓存）或 redis
	SubscriberBackend string

	CronSpec string
	Timezone string

	SourcesFile string
	Sources     []SourceConfig
	sourcesErr  error

	TopN                int
	FetchTimeout        time.Duration
	RenderTimeout       time.Duration
	FetchRetryAttempts  int
	FetchRetryBaseDelay time.Duration
	ChromePath          string

	Summarizer SummarizerConfig
	Mail       MailConfig

	BasicAuthUser string
	BasicAuthPass string
}

// SummarizerConfig Provider 为空表示不启用摘要阶段
type SummarizerConfig struct {
	Provider       string
	OpenAIEndpoint string
	OpenAIModel    string
	OpenAIKey      string
	CohereKey      string
	CohereModel    string
	MinChars       int
	MaxTokens      int
	Timeout        time.Duration
}

type MailConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	Timeout    time.Duration
	RatePerSec float64
}

// SourceConfig 对应 SOURCES_FILE 中的一项
type SourceConfig struct {
	Name          string         `yaml:"name"`
	Title         string         `yaml:"title"`
	URL           string         `yaml:"url"`
	Profile       string         `yaml:"profile"`
	Render        bool           `yaml:"render"`
	ReadySelector string         `yaml:"readySelector"`
	Feed          bool           `yaml:"feed"`
	Selectors     SelectorConfig `yaml:"selectors"`
}

type SelectorConfig struct {
	Item  string `yaml:"item"`
	Title string `yaml:"title"`
	Link  string `yaml:"link"`
	Seed  string `yaml:"seed"`
}

type sourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// ConfigurationError 启动期的致命配置问题（例如缺少邮件凭据），不会在每次运行时出现
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func Load() *Config {
	// .env 不存在时忽略，直接使用进程环境变量
	_ = godotenv.Load()

	mailUser := getEnv("EMAIL_USER", "")
	cfg := &Config{
		AppPort:           getEnv("APP_PORT", "9000"),
		PostgresDSN:       getEnv("POSTGRES_DSN", "host=localhost user=newsdigest password=newsdigest dbname=newsdigest port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		SubscriberBackend: strings.ToLower(getEnv("SUBSCRIBER_BACKEND", "postgres")),

		CronSpec: getEnv("CRON_SPEC", "0 7 * * *"),
		Timezone: getEnv("TIMEZONE", defaultTimezone),

		SourcesFile: getEnv("SOURCES_FILE", ""),

		TopN:                getEnvInt("TOP_N", 5),
		FetchTimeout:        getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
		RenderTimeout:       getEnvDuration("RENDER_TIMEOUT", 30*time.Second),
		FetchRetryAttempts:  getEnvInt("FETCH_RETRY_ATTEMPTS", 1),
		FetchRetryBaseDelay: getEnvDuration("FETCH_RETRY_BASE_DELAY", 2*time.Second),
		ChromePath:          getEnv("CHROME_PATH", ""),

		Summarizer: SummarizerConfig{
			Provider:       strings.ToLower(getEnv("SUMMARIZER_PROVIDER", "")),
			OpenAIEndpoint: getEnv("OPENAI_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
			OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
			CohereKey:      getEnv("COHERE_API_KEY", ""),
			CohereModel:    getEnv("COHERE_MODEL", "command-r"),
			MinChars:       getEnvInt("SUMMARY_MIN_CHARS", 200),
			MaxTokens:      getEnvInt("SUMMARY_MAX_TOKENS", 150),
			Timeout:        getEnvDuration("SUMMARY_TIMEOUT", 20*time.Second),
		},

		Mail: MailConfig{
			Host:       getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:       getEnvInt("SMTP_PORT", 587),
			User:       mailUser,
			Password:   getEnv("EMAIL_PASSWORD", ""),
			From:       getEnv("MAIL_FROM", mailUser),
			Timeout:    getEnvDuration("SEND_TIMEOUT", 15*time.Second),
			RatePerSec: getEnvFloat("SEND_RATE_PER_SEC", 5),
		},

		BasicAuthUser: getEnv("APP_BASIC_USER", ""),
		BasicAuthPass: getEnv("APP_BASIC_PASS", ""),
	}

	if cfg.SourcesFile != "" {
		cfg.Sources, cfg.sourcesErr = LoadSources(cfg.SourcesFile)
	}

	log.Printf("config loaded: port=%s cron=%s tz=%s backend=%s summarizer=%q sources_file=%q",
		cfg.AppPort, cfg.CronSpec, cfg.Timezone, cfg.SubscriberBackend, cfg.Summarizer.Provider, cfg.SourcesFile)
	return cfg
}

// LoadSources 读取 YAML 数据源列表；顺序即邮件中栏目的顺序
func LoadSources(path string) ([]SourceConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var f sourcesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s has no sources", path)
	}
	return f.Sources, nil
}

// Validate 启动时调用；返回 *ConfigurationError
func (c *Config) Validate() error {
	if c.Mail.User == "" || c.Mail.Password == "" {
		return &ConfigurationError{Field: "EMAIL_USER/EMAIL_PASSWORD", Reason: "mail credentials are required"}
	}
	if c.Mail.From == "" {
		return &ConfigurationError{Field: "MAIL_FROM", Reason: "sender address is required"}
	}
	if c.TopN <= 0 {
		return &ConfigurationError{Field: "TOP_N", Reason: "must be positive"}
	}
	if c.sourcesErr != nil {
		return &ConfigurationError{Field: "SOURCES_FILE", Reason: c.sourcesErr.Error()}
	}

	switch c.SubscriberBackend {
	case "postgres", "redis":
	default:
		return &ConfigurationError{Field: "SUBSCRIBER_BACKEND", Reason: fmt.Sprintf("unknown backend %q", c.SubscriberBackend)}
	}

	switch c.Summarizer.Provider {
	case "":
	case "openai":
		if c.Summarizer.OpenAIKey == "" {
			return &ConfigurationError{Field: "OPENAI_API_KEY", Reason: "required when SUMMARIZER_PROVIDER=openai"}
		}
	case "cohere":
		if c.Summarizer.CohereKey == "" {
			return &ConfigurationError{Field: "COHERE_API_KEY", Reason: "required when SUMMARIZER_PROVIDER=cohere"}
		}
	default:
		return &ConfigurationError{Field: "SUMMARIZER_PROVIDER", Reason: fmt.Sprintf("unknown provider %q", c.Summarizer.Provider)}
	}
	return nil
}

// Location 调度使用的时区，非法值回退到 UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("config: unknown timezone %s, using %s", c.Timezone, defaultTimezone)
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %v", key, v, def)
		return def
	}
	return f
}

// getEnvDuration 接受 "30s" 这类写法，也接受纯数字（按秒）
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("config: invalid %s=%q, using %s", key, v, def)
	return def
}
