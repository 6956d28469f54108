package motor

import (
	"time"

	"go.uber.org/zap"
)

// startScheduler launches the interval re-run loop. A run_interval of 0
// disables scheduling; runs then happen only on demand.
func (m *Module) startScheduler() {
	if m.cfg.RunInterval <= 0 {
		m.logger.Info("scheduler disabled (run_interval=0)")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.RunInterval)
		defer ticker.Stop()

		m.logger.Info("scheduler started", zap.Duration("interval", m.cfg.RunInterval))
		for {
			select {
			case <-ticker.C:
				if _, err := m.RunAndPublish(m.ctx, DefaultNamespace, time.Now().UTC()); err != nil && err != ErrBusy {
					m.logger.Warn("scheduled run failed", zap.Error(err))
				}
			case <-m.ctx.Done():
				return
			}
		}
	}()
}
