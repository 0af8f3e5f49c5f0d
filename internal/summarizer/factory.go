package summarizer

import (
	"fmt"

	"github.com/LJTian/NewsDigest/internal/config"
)

// FromConfig Provider 为空时返回 nil，表示跳过摘要阶段
func FromConfig(cfg config.SummarizerConfig) (*Summarizer, error) {
	var gen Generator
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		gen = NewOpenAIClient(cfg.OpenAIEndpoint, cfg.OpenAIModel, cfg.OpenAIKey, cfg.Timeout)
	case "cohere":
		gen = NewCohereClient(cfg.CohereKey, cfg.CohereModel, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Provider)
	}
	return New(gen, Options{
		MinChars:  cfg.MinChars,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.Timeout,
	}), nil
}
