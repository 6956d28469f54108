package motor

import (
	"time"

	"go.uber.org/zap"
)

// startMaintenance launches the retention pruning loop. A result_retention
// of 0 keeps the full derived-result history and disables pruning.
func (m *Module) startMaintenance() {
	if m.cfg.ResultRetention <= 0 {
		return
	}

	interval := m.cfg.MaintenanceInterval
	if interval <= 0 {
		interval = time.Hour
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-m.cfg.ResultRetention)
				n, err := m.store.PruneOlderThan(m.ctx, cutoff)
				if err != nil {
					m.logger.Warn("result pruning failed", zap.Error(err))
					continue
				}
				if n > 0 {
					m.logger.Info("pruned old results",
						zap.Int64("removed", n),
						zap.Time("cutoff", cutoff),
					)
				}
			case <-m.ctx.Done():
				return
			}
		}
	}()
}
