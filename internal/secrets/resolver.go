package secrets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	pkgsecrets "github.com/MahdiHaeri/Cloud-Practice-1/pkg/secrets"
)

// TokenResolver resolves the Telegram bot token from AWS Secrets Manager,
// caching the result locally so the secret is not re-fetched on every
// restart of the bot poll loop.
//
// Secret naming convention: {env}/arbitrage/telegram, stored as a JSON map
// with a "token" entry.
type TokenResolver struct {
	logger   *zap.Logger
	env      string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[string]
}

// NewTokenResolver constructs a resolver backed by the given provider.
func NewTokenResolver(
	logger *zap.Logger,
	env string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[string],
) *TokenResolver {
	return &TokenResolver{
		logger:   logger,
		env:      env,
		provider: provider,
		cache:    cache,
	}
}

// secretName builds the AWS Secrets Manager key.
// Pattern: {env}/arbitrage/telegram
func (r *TokenResolver) secretName() string {
	return strings.ToLower(fmt.Sprintf("%s/arbitrage/telegram", r.env))
}

// BotToken fetches or returns the cached Telegram bot token.
func (r *TokenResolver) BotToken(ctx context.Context) (string, error) {
	name := r.secretName()

	if token, ok := r.cache.Get(name); ok {
		return token, nil
	}

	secretMap, err := r.provider.GetSecret(ctx, name)
	if err != nil {
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", name),
			zap.Error(err))
		return "", fmt.Errorf("resolve telegram token: %w", err)
	}

	token, ok := secretMap["token"]
	if !ok || token == "" {
		return "", fmt.Errorf("secret %q has no token entry", name)
	}

	r.cache.Put(name, token)

	r.logger.Info("aws.telegram_token_resolved", zap.String("key", name))
	return token, nil
}
