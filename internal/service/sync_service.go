package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/campuskb/campuskb/internal/drive"
	"github.com/campuskb/campuskb/internal/ingest"
	"github.com/campuskb/campuskb/internal/knowledge"
	"github.com/campuskb/campuskb/internal/model"
	appErr "github.com/campuskb/campuskb/internal/pkg/errors"
)

// SyncService rebuilds the knowledge cache from the document store:
// one folder per configured role, every non-trashed PDF in it ingested
// into the generation service, the whole result published atomically.
type SyncService struct {
	store        drive.IClient
	worker       ingest.IIngester
	cache        *knowledge.Cache
	rootFolderID string
	roles        []model.RoleTag

	running atomic.Bool
}

func NewSyncService(store drive.IClient, worker ingest.IIngester, cache *knowledge.Cache, rootFolderID string, roles []model.RoleTag) *SyncService {
	return &SyncService{
		store:        store,
		worker:       worker,
		cache:        cache,
		rootFolderID: rootFolderID,
		roles:        roles,
	}
}

// Sync runs one full rebuild. Only one sync may be in flight; a
// concurrent call is rejected with ErrSyncBusy. On abort the previous
// snapshot stays published, so a transient outage never empties the
// cache. Individual document failures are logged and skipped; a role
// without a folder gets an empty list. Both still count as success.
func (s *SyncService) Sync(ctx context.Context) ([]model.DocumentEntry, error) {
	if !s.running.CompareAndSwap(false, true) {
		return s.DisplayList(), appErr.ErrSyncBusy
	}
	defer s.running.Store(false)

	logger := logutil.GetLogger(ctx)
	builder := knowledge.NewBuilder()
	lookupFailures := 0

	for _, role := range s.roles {
		roleLogger := logger.With(zap.String("role", string(role)))
		folders, err := s.store.ListFolders(ctx, s.rootFolderID, string(role))
		if err != nil {
			lookupFailures++
			roleLogger.Error("folder lookup failed", zap.Error(err))
			continue
		}
		if len(folders) == 0 {
			roleLogger.Warn("no folder for role, document list will be empty",
				zap.String("reason", appErr.ErrFolderNotFound.Error()))
			continue
		}
		files, err := s.store.ListFiles(ctx, folders[0].ID, drive.MIMETypePDF)
		if err != nil {
			roleLogger.Error("file enumeration failed", zap.Error(err))
			continue
		}
		for _, file := range files {
			entry := model.DocumentEntry{
				DisplayName: file.Name,
				ViewURL:     file.ViewURL,
				Role:        role,
			}
			handle, err := s.worker.Ingest(ctx, model.DocumentDescriptor{
				ID:          file.ID,
				DisplayName: file.Name,
				ViewURL:     file.ViewURL,
				Role:        role,
			})
			if err != nil {
				roleLogger.Warn("document skipped", zap.String("name", file.Name), zap.Error(err))
			} else {
				entry.Ready = true
				builder.AddDocument(role, handle)
			}
			// Discovered documents are always listed, flagged if not
			// ready, so users can see what should exist.
			builder.AddEntry(entry)
		}
	}

	// A sync where no role folder could even be looked up means the
	// store itself is unreachable; keep the previous snapshot.
	if len(s.roles) > 0 && lookupFailures == len(s.roles) {
		logger.Error("sync aborted, previous snapshot retained",
			zap.Int("roles", len(s.roles)))
		return s.DisplayList(), fmt.Errorf("%w: document store unreachable", appErr.ErrSyncAborted)
	}

	snapshot := s.cache.Publish(builder)
	logger.Info("knowledge cache published",
		zap.Uint64("version", snapshot.Version()),
		zap.Int("documents", len(snapshot.Display())),
	)
	return snapshot.Display(), nil
}

// DisplayList reads the currently published document list. It never
// blocks on an in-flight sync.
func (s *SyncService) DisplayList() []model.DocumentEntry {
	return s.cache.Snapshot().Display()
}
