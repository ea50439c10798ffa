package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/quantgate/internal/lifecycle"
)

// paperExecutor logs the orders the lifecycle emits instead of sending them
// to a venue. Real execution lives in the order router service; the daemon
// runs paper-only.
type paperExecutor struct{}

func (paperExecutor) PlaceAdd(_ context.Context, symbol string, side lifecycle.Side, size float64) error {
	log.Info().
		Str("symbol", symbol).
		Str("side", string(side)).
		Float64("size", size).
		Msg("paper pyramid add placed")
	return nil
}

func (paperExecutor) ClosePosition(_ context.Context, symbol string, reason string) error {
	log.Info().
		Str("symbol", symbol).
		Str("reason", reason).
		Msg("paper position closed")
	return nil
}
