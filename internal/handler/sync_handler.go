package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campuskb/campuskb/internal/pkg/response"
	"github.com/campuskb/campuskb/internal/service"
)

type SyncHandler struct {
	sync *service.SyncService
}

func NewSyncHandler(sync *service.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// Refresh rebuilds the knowledge cache synchronously and returns the
// resulting document list. Partial document failures still count as
// success; they just show up unready in the list.
func (h *SyncHandler) Refresh(c *gin.Context) {
	files, err := h.sync.Sync(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "success", "files": files})
}

func (h *SyncHandler) Documents(c *gin.Context) {
	response.Success(c, gin.H{"files": h.sync.DisplayList()})
}
