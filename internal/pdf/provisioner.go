package pdf

import (
	"fmt"
	"log/slog"
	"strings"

	"cvBuilder/internal/config"
)

// NewProvisioner 按引擎名创建沙箱供给器。
func NewProvisioner(engine, bin string, logger *slog.Logger) (Provisioner, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", "rod":
		return NewRodProvisioner(bin, logger), nil
	case "chromedp":
		return NewChromedpProvisioner(bin), nil
	default:
		return nil, fmt.Errorf("unknown render engine %q", engine)
	}
}

// NewExporterFromConfig 根据渲染配置装配 Exporter。
func NewExporterFromConfig(cfg config.RenderConfig, logger *slog.Logger) (*Exporter, error) {
	p, err := NewProvisioner(cfg.Engine, cfg.BrowserBin, logger)
	if err != nil {
		return nil, err
	}
	return NewExporter(p, WithTimeout(cfg.Timeout), WithMaxConcurrent(cfg.MaxConcurrent)), nil
}
