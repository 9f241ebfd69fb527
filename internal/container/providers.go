package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reports/internal/application/port"
	"github.com/garyjia/expense-reports/internal/application/service"
	"github.com/garyjia/expense-reports/internal/config"
	"github.com/garyjia/expense-reports/internal/infrastructure/external/lark"
	"github.com/garyjia/expense-reports/internal/infrastructure/storage"
	"github.com/garyjia/expense-reports/internal/report"
)

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Reports       *service.ReportService
	Exports       *service.ExportService
	Notifications *service.NotificationService
}

// ProvideMessenger creates the Lark message sender.
// It returns a nil sender when notifications are disabled.
func ProvideMessenger(cfg *config.LarkConfig, logger *zap.Logger) (port.MessageSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if !cfg.Enabled {
		logger.Info("Lark notifications disabled")
		return nil, nil
	}

	client := lark.NewSDKClient(lark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		ChatID:    cfg.ChatID,
		Timeout:   cfg.APITimeout,
	}, logger)
	return lark.NewMessenger(client, cfg.ChatID, logger), nil
}

// ProvideStorage creates the export storage rooted at the output directory.
func ProvideStorage(cfg *config.StorageConfig, logger *zap.Logger) (port.ExportStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("storage output_dir is required")
	}
	return storage.NewLocalExportStorage(cfg.OutputDir, logger), nil
}

// PDFOptions maps the report section of the configuration to renderer options.
func PDFOptions(cfg *config.ReportConfig) report.PDFOptions {
	opts := report.DefaultPDFOptions()
	if cfg.LandscapeThreshold > 0 {
		opts.LandscapeThreshold = cfg.LandscapeThreshold
	}
	if cfg.PageSize != "" {
		opts.PageSize = cfg.PageSize
	}
	if cfg.FontFamily != "" {
		opts.FontFamily = cfg.FontFamily
	}
	if cfg.FontSize > 0 {
		opts.FontSize = cfg.FontSize
	}
	return opts
}

// ProvideServices creates all application services.
func ProvideServices(cfg *config.ReportConfig, sender port.MessageSender, logger *zap.Logger) (*ServiceBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("report config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &ServiceBundle{
		Reports: service.NewReportService(service.ReportConfig{
			Locale:             cfg.Locale,
			Strict:             cfg.Strict,
			IncludeRuleNatures: cfg.IncludeRuleNatures,
		}, logger),
		Exports: service.NewExportService(service.ExportConfig{
			PDF:   PDFOptions(cfg),
			Title: cfg.Title,
		}, logger),
		Notifications: service.NewNotificationService(sender, logger),
	}, nil
}
