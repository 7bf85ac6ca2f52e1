package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/campuskb/campuskb/internal/pkg/googleauth"
)

const (
	MIMETypePDF    = "application/pdf"
	mimeTypeFolder = "application/vnd.google-apps.folder"
)

type Folder struct {
	ID   string
	Name string
}

type File struct {
	ID      string
	Name    string
	ViewURL string
}

// IClient is the narrow slice of the document store this system needs:
// folder lookup by name, file enumeration, and content download.
type IClient interface {
	ListFolders(ctx context.Context, parentID string, name string) ([]Folder, error)
	ListFiles(ctx context.Context, folderID string, mimeType string) ([]File, error)
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
}

type driveClient struct {
	service *drive.Service
}

func New(ctx context.Context, credentialsFile string) (IClient, error) {
	creds, err := googleauth.CredentialsFromFile(ctx, credentialsFile, drive.DriveReadonlyScope)
	if err != nil {
		return nil, err
	}
	service, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("init drive service: %w", err)
	}
	return &driveClient{service: service}, nil
}

func (c *driveClient) ListFolders(ctx context.Context, parentID string, name string) ([]Folder, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType='%s' and name='%s' and trashed=false",
		escapeQueryTerm(parentID), mimeTypeFolder, escapeQueryTerm(name))
	list, err := c.service.Files.List().
		Q(query).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	folders := make([]Folder, 0, len(list.Files))
	for _, item := range list.Files {
		folders = append(folders, Folder{ID: item.Id, Name: item.Name})
	}
	return folders, nil
}

func (c *driveClient) ListFiles(ctx context.Context, folderID string, mimeType string) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType='%s' and trashed=false",
		escapeQueryTerm(folderID), escapeQueryTerm(mimeType))
	list, err := c.service.Files.List().
		Q(query).
		Fields("files(id, name, webViewLink)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	files := make([]File, 0, len(list.Files))
	for _, item := range list.Files {
		files = append(files, File{ID: item.Id, Name: item.Name, ViewURL: item.WebViewLink})
	}
	return files, nil
}

func (c *driveClient) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	return resp.Body, nil
}

// escapeQueryTerm escapes the characters that terminate a quoted term
// in a drive query expression.
func escapeQueryTerm(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
