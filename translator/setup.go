package translator

import (
	"go.uber.org/zap"

	"pdf-translator/config"
)

// NewFromConfig 按配置组装 OpenAI 模型和 PDFTranslator。
// modelName、apiKey 为空时使用配置中的值。cache 可以为 nil。
func NewFromConfig(cfg *config.Config, modelName, apiKey string, cache *Cache, logger *zap.Logger) (*PDFTranslator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if modelName == "" {
		modelName = cfg.Model.Name
	}
	if apiKey == "" {
		apiKey = cfg.Model.APIKey
	}

	model, err := NewOpenAIModel(OpenAIConfig{
		APIKey:           apiKey,
		BaseURL:          cfg.Model.BaseURL,
		Model:            modelName,
		Temperature:      cfg.Model.Temperature,
		Timeout:          cfg.Model.Timeout,
		RateLimitRetries: cfg.Model.RateLimitRetries,
		RateLimitDelay:   cfg.Model.RateLimitDelay,
	}, logger)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithLogger(logger),
		WithModelName(model.Name()),
		WithFontResolver(NewFontResolver(cfg.Fonts.FallbackName, cfg.Fonts.FallbackFile, cfg.Fonts.Default)),
		WithBookWriter(NewBookWriter(cfg.Fonts.FallbackFile, logger)),
	}
	if cache != nil {
		opts = append(opts, WithCache(cache))
	}
	return NewPDFTranslator(model, opts...)
}
