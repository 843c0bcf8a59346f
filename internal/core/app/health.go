package app

import (
	"context"
	"fmt"
	"time"

	"cssnav/internal/engine/servicemap"
	"cssnav/internal/shared/util"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

// Check reports whether both maps have walked the workspace. It does not
// trigger a walk.
func (s *HealthService) Check(_ context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	for _, m := range []*servicemap.Map{s.app.CSS, s.app.HTML} {
		if m == nil {
			status.Status = "degraded"
			continue
		}
		st := m.Stats()
		if !m.Walked() {
			status.Status = "degraded"
			status.Components[st.Name] = "not indexed"
			continue
		}
		status.Components[st.Name] = fmt.Sprintf("ok (%d tracked, %d parsed, %d ignored)", st.Tracked, st.Parsed, st.Ignored)
	}

	if s.app.watching() {
		status.Components["watcher"] = "ok"
	} else {
		status.Components["watcher"] = "off"
	}
	status.Components["memory"] = fmt.Sprintf("%d MB heap", util.GetHeapAllocMB())
	return status
}
