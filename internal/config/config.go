package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Answer AnswerConfig
	Widget WidgetConfig
	Log    LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	answer, err := loadAnswerConfig()
	if err != nil {
		return nil, err
	}

	widget, err := loadWidgetConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Answer: answer, Widget: widget, Log: logCfg}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AnswerConfig points the widget at the Answer Service.
type AnswerConfig struct {
	BaseURL string
	Path    string
	// Timeout of zero means requests may hang indefinitely.
	Timeout time.Duration
}

// Endpoint joins BaseURL and Path.
func (c AnswerConfig) Endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.Path, "/")
}

func loadAnswerConfig() (AnswerConfig, error) {
	baseURL := getEnvOrDefault("ANSWER_BASE_URL", "http://localhost:5000")
	if err := ValidateBaseURL("ANSWER_BASE_URL", baseURL); err != nil {
		return AnswerConfig{}, err
	}

	path := getEnvOrDefault("ANSWER_PATH", "/api/chat")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	timeoutSeconds := 0
	if override, err := parseOptionalIntEnv("ANSWER_TIMEOUT"); err != nil {
		return AnswerConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return AnswerConfig{}, fmt.Errorf("invalid ANSWER_TIMEOUT value %d: must not be negative", *override)
		}
		timeoutSeconds = *override
	}

	return AnswerConfig{
		BaseURL: baseURL,
		Path:    path,
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// ValidateBaseURL checks that raw is an absolute http(s) URL. name identifies
// the setting in the error.
func ValidateBaseURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", name, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s value %q: scheme must be http or https", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s value %q: missing host", name, raw)
	}
	return nil
}

// WidgetConfig holds the texts and send policy of the chat widget.
type WidgetConfig struct {
	BotName        string
	UserName       string
	PendingText    string
	ErrorText      string
	SerializeSends bool
}

// DefaultWidgetConfig returns the widget defaults used when no variables are set.
func DefaultWidgetConfig() WidgetConfig {
	return WidgetConfig{
		BotName:     "Genie",
		UserName:    "You",
		PendingText: "🤔 Thinking...",
		ErrorText:   "❌ Server error. Try again.",
	}
}

func loadWidgetConfig() (WidgetConfig, error) {
	defaults := DefaultWidgetConfig()

	serialize, err := parseBoolEnv("WIDGET_SERIALIZE_SENDS", false)
	if err != nil {
		return WidgetConfig{}, err
	}

	return WidgetConfig{
		BotName:        getEnvOrDefault("WIDGET_BOT_NAME", defaults.BotName),
		UserName:       getEnvOrDefault("WIDGET_USER_NAME", defaults.UserName),
		PendingText:    getEnvOrDefault("WIDGET_PENDING_TEXT", defaults.PendingText),
		ErrorText:      getEnvOrDefault("WIDGET_ERROR_TEXT", defaults.ErrorText),
		SerializeSends: serialize,
	}, nil
}

// LogConfig 描述日志输出配置。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() (LogConfig, error) {
	level := strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	switch level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return LogConfig{}, fmt.Errorf("invalid LOG_LEVEL value: %q", level)
	}

	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	switch format {
	case "":
		format = "json"
		if isatty.IsTerminal(os.Stderr.Fd()) {
			format = "console"
		}
	case "json", "console":
	default:
		return LogConfig{}, fmt.Errorf("invalid LOG_FORMAT value: %q", format)
	}

	return LogConfig{Level: level, Format: format}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
