package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/campuskb/campuskb/internal/ai"
	"github.com/campuskb/campuskb/internal/config"
	"github.com/campuskb/campuskb/internal/drive"
	"github.com/campuskb/campuskb/internal/model"
	appErr "github.com/campuskb/campuskb/internal/pkg/errors"
)

type IIngester interface {
	Ingest(ctx context.Context, descriptor model.DocumentDescriptor) (*ai.DocumentHandle, error)
}

// Worker ingests a single document: download to a staging file, submit
// to the generation service, then poll until the handle leaves the
// pending state or the attempt ceiling is reached.
type Worker struct {
	store           drive.IClient
	provider        ai.IProvider
	stagingDir      string
	pollInterval    time.Duration
	maxPollAttempts int
	sleep           func(ctx context.Context, d time.Duration) error
}

func NewWorker(store drive.IClient, provider ai.IProvider, cfg config.IngestConfig) *Worker {
	return &Worker{
		store:           store,
		provider:        provider,
		stagingDir:      cfg.StagingDir,
		pollInterval:    time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		maxPollAttempts: cfg.MaxPollAttempts,
		sleep:           sleepContext,
	}
}

func (w *Worker) Ingest(ctx context.Context, descriptor model.DocumentDescriptor) (*ai.DocumentHandle, error) {
	logger := logutil.GetLogger(ctx).With(
		zap.String("file_id", descriptor.ID),
		zap.String("name", descriptor.DisplayName),
		zap.String("role", string(descriptor.Role)),
	)

	staging, err := w.stage(ctx, descriptor.ID)
	if err != nil {
		logger.Error("download failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %s", appErr.ErrDownload, err.Error())
	}
	// The staging file is exclusively owned by this call and released
	// on every exit path.
	defer func() {
		staging.Close()
		os.Remove(staging.Name())
	}()

	handle, err := w.provider.SubmitDocument(ctx, staging, descriptor.DisplayName)
	if err != nil {
		logger.Error("submit failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %s", appErr.ErrIngestSubmit, err.Error())
	}
	if handle.State == ai.HandleStateFailed {
		logger.Error("document rejected on submit")
		return nil, appErr.ErrIngestRejected
	}

	state := handle.State
	for attempt := 0; state == ai.HandleStatePending && attempt < w.maxPollAttempts; attempt++ {
		if err := w.sleep(ctx, w.pollInterval); err != nil {
			return nil, fmt.Errorf("%w: %s", appErr.ErrIngestPoll, err.Error())
		}
		next, err := w.provider.GetHandleState(ctx, handle.ID)
		if err != nil {
			// A failed poll call burns an attempt but is not terminal;
			// the ceiling bounds the total wait either way.
			logger.Warn("poll failed", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		state = next
	}

	switch state {
	case ai.HandleStateReady:
		handle.State = ai.HandleStateReady
		logger.Info("document ready", zap.String("handle", handle.ID))
		return handle, nil
	case ai.HandleStateFailed:
		logger.Error("document processing failed", zap.String("handle", handle.ID))
		return nil, appErr.ErrIngestRejected
	default:
		logger.Error("document still pending after attempt ceiling, abandoning",
			zap.String("handle", handle.ID),
			zap.Int("attempts", w.maxPollAttempts),
		)
		return nil, appErr.ErrIngestTimeout
	}
}

// stage downloads the document into a temp file and rewinds it for the
// subsequent submit.
func (w *Worker) stage(ctx context.Context, fileID string) (*os.File, error) {
	body, err := w.store.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	staging, err := os.CreateTemp(w.stagingDir, "campuskb-*.pdf")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(staging, body); err != nil {
		staging.Close()
		os.Remove(staging.Name())
		return nil, err
	}
	if _, err := staging.Seek(0, io.SeekStart); err != nil {
		staging.Close()
		os.Remove(staging.Name())
		return nil, err
	}
	return staging, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
