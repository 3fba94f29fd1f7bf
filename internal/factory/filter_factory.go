package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/adapters/filter"
	"github.com/mikey/llm-phishing-detector/internal/analysis"
	"github.com/mikey/llm-phishing-detector/internal/config"
	"github.com/mikey/llm-phishing-detector/internal/ports"
)

// FilterFactory creates analysis entry points based on configuration
type FilterFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *analysis.Service
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, service *analysis.Service) *FilterFactory {
	return &FilterFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateEmailFilter creates an email filter based on the configuration
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	filterType := f.cfg.GetString("server.filter_type")

	switch filterType {
	case "smtp":
		return filter.NewSMTPFilter(
			f.service,
			f.logger,
			f.cfg.GetString("server.listen_address"),
			f.cfg.GetBool("server.block_high_risk"),
			f.cfg.GetString("server.headers.score"),
			f.cfg.GetString("server.headers.tier"),
			f.cfg.GetString("server.headers.flags"),
			f.cfg.GetString("server.headers.status"),
			f.cfg.GetString("server.relay.address"),
			f.cfg.GetInt("server.relay.port"),
			f.cfg.GetBool("server.relay.enabled"),
		), nil
	case "cli":
		return filter.NewCliFilter(
			f.service,
			f.logger,
			f.cfg.GetBool("cli.verbose"),
		)
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", filterType)
	}
}
