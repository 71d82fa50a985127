package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server       ServerConfig
	Log          LogConfig
	AI           AIConfig
	Conversation ConversationConfig
	Store        StoreConfig
	Auth         AuthConfig
	Metrics      MetricsConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	conversation, err := loadConversationConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		AI:           ai,
		Conversation: conversation,
		Store:        StoreConfig{DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL"))},
		Auth:         auth,
		Metrics:      MetricsConfig{Namespace: getEnvOrDefault("METRICS_NAMESPACE", "hopeflow")},
	}, nil
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
		// 允许直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string
}

// Provider names the generation backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderArk    Provider = "ark"
	ProviderOpenAI Provider = "openai"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider Provider
	Gemini   GeminiConfig
	Ark      ArkConfig
	OpenAI   OpenAIConfig
}

// GeminiConfig 描述 Gemini generateContent 接口配置。
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ArkConfig 描述火山方舟模型配置。
type ArkConfig struct {
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
}

// OpenAIConfig 描述 OpenAI Responses 接口配置。
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Enabled 表示是否提供了必需的密钥。
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个 Ark 模型实例。采样参数在每次调用时传入。
func (c ArkConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.Model,
	}

	return ark.NewChatModel(ctx, cfg)
}

// Validate fails fast when the selected provider is missing its secret.
func (c AIConfig) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER=%s", c.Provider)
		}
	case ProviderArk:
		if !c.Ark.Enabled() {
			return fmt.Errorf("ARK_API_KEY (or ARK_ACCESS_KEY/ARK_SECRET_KEY) and Model are required when AI_PROVIDER=%s", c.Provider)
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER=%s", c.Provider)
		}
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.Provider)
	}
	return nil
}

func loadAIConfig() (AIConfig, error) {
	cfg := AIConfig{
		Provider: Provider(strings.ToLower(getEnvOrDefault("AI_PROVIDER", string(ProviderGemini)))),
		Gemini: GeminiConfig{
			APIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:   getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
			BaseURL: getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1"),
		},
		Ark: ArkConfig{
			APIKey:    strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			AccessKey: strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
			Model:     strings.TrimSpace(os.Getenv("Model")),
			BaseURL:   getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:    getEnvOrDefault("ARK_REGION", "cn-beijing"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return AIConfig{}, err
	}
	return cfg, nil
}

// ConversationConfig 描述会话上下文的过期策略。
type ConversationConfig struct {
	Timeout       time.Duration
	SweepInterval time.Duration
}

func loadConversationConfig() (ConversationConfig, error) {
	timeout, err := parseDurationEnv("CONVERSATION_TIMEOUT", 15*time.Minute)
	if err != nil {
		return ConversationConfig{}, err
	}
	if timeout <= 0 {
		return ConversationConfig{}, fmt.Errorf("CONVERSATION_TIMEOUT must be positive, got %s", timeout)
	}

	sweep, err := parseDurationEnv("CONVERSATION_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return ConversationConfig{}, err
	}

	return ConversationConfig{Timeout: timeout, SweepInterval: sweep}, nil
}

// StoreConfig 描述聊天记录的持久化后端。
type StoreConfig struct {
	DatabaseURL string
}

// AuthMode selects how bearer tokens are resolved to users. Header mode trusts
// the caller and must be requested explicitly.
type AuthMode string

const (
	AuthModeHeader   AuthMode = "header"
	AuthModeSupabase AuthMode = "supabase"
)

// AuthConfig 描述用户身份解析方式。
type AuthConfig struct {
	Mode        AuthMode
	SupabaseURL string
	AnonKey     string
}

func loadAuthConfig() (AuthConfig, error) {
	cfg := AuthConfig{
		Mode:        AuthMode(strings.ToLower(getEnvOrDefault("AUTH_MODE", string(AuthModeSupabase)))),
		SupabaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		AnonKey:     strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
	}

	switch cfg.Mode {
	case AuthModeHeader:
	case AuthModeSupabase:
		if cfg.SupabaseURL == "" || cfg.AnonKey == "" {
			return AuthConfig{}, fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required when AUTH_MODE=%s", cfg.Mode)
		}
	default:
		return AuthConfig{}, fmt.Errorf("unsupported AUTH_MODE %q", cfg.Mode)
	}

	return cfg, nil
}

// MetricsConfig 描述 Prometheus 指标配置。
type MetricsConfig struct {
	Namespace string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// parseDurationEnv accepts Go durations ("15m") or a bare number of seconds.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
