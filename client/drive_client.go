package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/taxbasehub/fiscal-audit/service"
)

// DriveClient implements the watcher's FileLister and the extractor's
// StorageReader on top of the Drive v3 API.
type DriveClient struct {
	svc *drive.Service
}

func NewDriveClient(svc *drive.Service) *DriveClient {
	return &DriveClient{svc: svc}
}

// ListFiles returns one page of non-trashed PDFs created after the
// cutoff. With an empty folderID the query spans all drives; otherwise
// it is scoped to the folder's direct children (the fallback path).
func (c *DriveClient) ListFiles(ctx context.Context, createdAfter time.Time, folderID, pageToken string) (*service.FilePage, error) {
	query := fmt.Sprintf("trashed=false and createdTime > '%sT00:00:00' and mimeType='application/pdf'",
		createdAfter.Format("2006-01-02"))
	if folderID != "" {
		query = fmt.Sprintf("'%s' in parents and %s", folderID, query)
	}

	call := c.svc.Files.List().
		Q(query).
		Spaces("drive").
		IncludeItemsFromAllDrives(true).
		SupportsAllDrives(true).
		Fields("nextPageToken, files(id, name, parents, webViewLink, createdTime)").
		PageToken(pageToken).
		Context(ctx)
	if folderID == "" {
		call = call.Corpora("allDrives")
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("drive files.list: %w", err)
	}

	page := &service.FilePage{NextPageToken: resp.NextPageToken}
	for _, f := range resp.Files {
		created, _ := time.Parse(time.RFC3339, f.CreatedTime)
		page.Files = append(page.Files, service.DriveFile{
			ID:        f.Id,
			Name:      f.Name,
			Link:      f.WebViewLink,
			Parents:   f.Parents,
			CreatedAt: created,
		})
	}
	return page, nil
}

func (c *DriveClient) GetFolder(ctx context.Context, folderID string) (*service.FolderMeta, error) {
	folder, err := c.svc.Files.Get(folderID).
		Fields("id, name, parents").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive files.get %s: %w", folderID, err)
	}
	return &service.FolderMeta{ID: folder.Id, Name: folder.Name, Parents: folder.Parents}, nil
}

// Download fetches the raw bytes of a file.
func (c *DriveClient) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("drive download %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading download body: %w", err)
	}
	return data, nil
}
