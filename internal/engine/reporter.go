package engine

import (
	"matchbook/internal/common"

	"github.com/rs/zerolog"
)

// LogReporter writes each trade as a structured log line.
type LogReporter struct {
	logger zerolog.Logger
}

func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) ReportTrade(trade common.Trade) error {
	r.logger.Info().
		Stringer("buyer", trade.Buyer).
		Stringer("seller", trade.Seller).
		Stringer("quantity", trade.Quantity).
		Stringer("price", trade.Price).
		Msg("trade")
	return nil
}
