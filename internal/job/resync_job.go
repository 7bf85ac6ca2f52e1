package job

import (
	"context"
	"errors"

	appErr "github.com/campuskb/campuskb/internal/pkg/errors"
	"github.com/campuskb/campuskb/internal/service"
)

// ResyncJob periodically rebuilds the knowledge cache so new or
// replaced documents show up without a manual refresh.
type ResyncJob struct {
	sync *service.SyncService
}

func NewResyncJob(sync *service.SyncService) *ResyncJob {
	return &ResyncJob{sync: sync}
}

func (j *ResyncJob) Name() string {
	return "knowledge_resync"
}

func (j *ResyncJob) Run(ctx context.Context) error {
	_, err := j.sync.Sync(ctx)
	// An in-flight manual refresh wins; the next tick will retry.
	if errors.Is(err, appErr.ErrSyncBusy) {
		return nil
	}
	return err
}
