package lark

import (
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Config holds Lark client configuration
type Config struct {
	AppID     string
	AppSecret string
	ChatID    string // Group chat receiving audit digests
	Timeout   time.Duration
}

// NewSDKClient creates the Lark SDK client used by the messenger
func NewSDKClient(cfg Config, logger *zap.Logger) *lark.Client {
	opts := []lark.ClientOptionFunc{
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, lark.WithReqTimeout(cfg.Timeout))
	}

	logger.Info("Lark client configured",
		zap.String("app_id", cfg.AppID),
		zap.String("chat_id", cfg.ChatID),
		zap.Duration("timeout", cfg.Timeout))

	return lark.NewClient(cfg.AppID, cfg.AppSecret, opts...)
}
