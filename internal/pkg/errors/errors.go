package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")
	ErrUnavailable  = errors.New("service unavailable")
	ErrDownload     = errors.New("document download failed")
	ErrIngestSubmit = errors.New("document submit failed")
	ErrIngestPoll   = errors.New("document state poll failed")
	// ErrIngestTimeout means the handle never left the pending state
	// within the attempt ceiling. The handle is abandoned, not reused.
	ErrIngestTimeout  = errors.New("document processing timed out")
	ErrIngestRejected = errors.New("document rejected by service")
	ErrFolderNotFound = errors.New("role folder not found")
	ErrSyncAborted    = errors.New("sync aborted")
	ErrSyncBusy       = errors.New("sync already running")
)
