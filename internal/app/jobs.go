package app

import (
	"fmt"

	"go.uber.org/zap"
)

// RegisterRefreshJob schedules fn at the configured catalog refresh
// interval. A zero interval disables the background refresh; the list is
// then only refreshed after mutations.
func (a *Application) RegisterRefreshJob(fn func()) {
	interval := a.appConfig.Catalog.Refresh.Duration()
	if interval <= 0 {
		return
	}
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := a.sched.AddFunc(spec, fn); err != nil {
		zap.S().Errorf("failed to schedule catalog refresh: %v", err)
		return
	}
	zap.S().Infof("catalog refresh scheduled %s", spec)
}
