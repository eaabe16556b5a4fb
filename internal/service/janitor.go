package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pribylovaa/accounts-service/internal/pkg/log"
)

// RunJanitor периодически очищает истёкшие refresh-токены до отмены ctx.
// period <= 0 отключает очистку.
func (s *Service) RunJanitor(ctx context.Context, period time.Duration) {
	if period <= 0 {
		return
	}

	lg := log.From(ctx)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ClearExpiredSessions(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				lg.Warn("refresh_janitor_failed", log.Err(err))
				continue
			}
			if n > 0 {
				lg.Info("refresh_janitor_cleared", slog.Int64("sessions", n))
			}
		}
	}
}
