package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/text2toss/junk-removal-api/internal/config"
	"github.com/text2toss/junk-removal-api/internal/quotes"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// BuildEstimator wires the AI pricing chain: Gemini first, Bedrock second.
// It returns a nil estimator when no provider is configured; quotes then use
// rule pricing. The returned func releases provider clients.
func BuildEstimator(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (quotes.Estimator, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		chain   []quotes.Estimator
		closers []func()
	)

	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := quotes.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: gemini: %w", err)
		}
		chain = append(chain, quotes.NewModelEstimator("gemini", gemini))
		closers = append(closers, func() { _ = gemini.Close() })
	}

	if awsCfg != nil && strings.TrimSpace(cfg.BedrockModelID) != "" {
		bedrock, err := quotes.NewBedrockModel(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: bedrock: %w", err)
		}
		chain = append(chain, quotes.NewModelEstimator("bedrock", bedrock))
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(chain) == 0 {
		logger.Warn("no AI estimator configured; quotes use rule pricing")
		return nil, closeAll, nil
	}
	logger.Info("ai estimator enabled", "providers", len(chain))
	return quotes.NewFallbackEstimator(logger, chain...), closeAll, nil
}
