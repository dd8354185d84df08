package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/pagenook/notegraph/internal/repo"
)

// BuildReaperJob flips builds that stopped reporting progress into the
// error state so their users can trigger again. A worker that dies mid-run
// otherwise leaves its status record stuck in building.
type BuildReaperJob struct {
	status     *repo.StatusRepo
	staleAfter time.Duration
}

func NewBuildReaperJob(status *repo.StatusRepo, staleAfter time.Duration) *BuildReaperJob {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &BuildReaperJob{status: status, staleAfter: staleAfter}
}

func (j *BuildReaperJob) Name() string {
	return "build_reaper"
}

func (j *BuildReaperJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.staleAfter)
	n, err := j.status.ResetStale(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		logutil.GetLogger(ctx).Info("reset stale builds", zap.Int64("count", n))
	}
	return nil
}
