package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const (
	DefaultModelName = "gpt-4o-mini"

	defaultModelTimeout   = 120 * time.Second
	defaultRateLimitDelay = 2 * time.Second
)

const systemPrompt = "You are a professional translator. Keep the original meaning and style. Only return the translation without any explanations."

// OpenAIConfig OpenAI 兼容接口的配置
type OpenAIConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	Temperature      float64
	Timeout          time.Duration
	RateLimitRetries int
	RateLimitDelay   time.Duration
	HTTPClient       *http.Client
}

// OpenAIModel 通过 Chat Completions 接口实现 Model。
// 只有 429 限流会在内部重试，其余错误直接作为传输失败返回。
type OpenAIModel struct {
	client openai.Client
	cfg    OpenAIConfig
	logger *zap.Logger
}

// NewOpenAIModel 创建 OpenAIModel
func NewOpenAIModel(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("缺少 API Key")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModelName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultModelTimeout
	}
	if cfg.RateLimitRetries < 0 {
		cfg.RateLimitRetries = 0
	}
	if cfg.RateLimitDelay <= 0 {
		cfg.RateLimitDelay = defaultRateLimitDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIModel{
		client: openai.NewClient(opts...),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Name 模型名
func (m *OpenAIModel) Name() string {
	return m.cfg.Model
}

// MakeRequest 实现 Model
func (m *OpenAIModel) MakeRequest(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	}
	if m.cfg.Temperature > 0 {
		params.Temperature = openai.Float(m.cfg.Temperature)
	}

	var content string
	err := retry.Do(
		func() error {
			resp, err := m.client.Chat.Completions.New(ctx, params)
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return errors.New("API 未返回翻译结果")
			}
			content = resp.Choices[0].Message.Content
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(m.cfg.RateLimitRetries)+1),
		retry.Delay(m.cfg.RateLimitDelay),
		retry.RetryIf(isRateLimited),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			m.logger.Warn("模型接口限流，稍后重试", zap.Uint("retry", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return "", mapOpenAIError(err)
	}
	return content, nil
}

func isRateLimited(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("OpenAI 接口错误 (状态码 %d): %w", apiErr.StatusCode, err)
	}
	return err
}
