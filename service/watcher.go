package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/taxbasehub/fiscal-audit/dto"
)

// DriveFile is one raw listing result before folder-safety filtering.
type DriveFile struct {
	ID        string
	Name      string
	Link      string
	Parents   []string
	CreatedAt time.Time
}

// FilePage is one page of listing results.
type FilePage struct {
	Files         []DriveFile
	NextPageToken string
}

// FolderMeta is the folder metadata needed by the safety walk.
type FolderMeta struct {
	ID      string
	Name    string
	Parents []string
}

// FileLister is the watcher's view of the source file repository. An
// empty folderID means a global (all drives) query; a non-empty one
// scopes the query to that folder's direct children.
type FileLister interface {
	ListFiles(ctx context.Context, createdAfter time.Time, folderID, pageToken string) (*FilePage, error)
	GetFolder(ctx context.Context, folderID string) (*FolderMeta, error)
}

type folderVerdict struct {
	allowed bool
	reason  string
}

// DriveWatcher enumerates recent candidate PDFs and rejects anything
// living under a forbidden folder. The shared drive contains folders
// the audit must never ingest (raw invoice archives); folder names are
// the only reliable signal, and files nest arbitrarily deep, so the
// check walks parent links upward until it hits a forbidden name, the
// configured root, or the top of the drive.
//
// The verdict cache is instance state: construct one watcher per run so
// tests always start fresh.
type DriveWatcher struct {
	lister        FileLister
	rootFolderID  string
	ignoreFolders []string
	windowDays    int
	folderTimeout time.Duration
	logger        *logrus.Logger

	folderCache map[string]folderVerdict
}

func NewDriveWatcher(lister FileLister, rootFolderID string, ignoreFolders []string, windowDays int, folderTimeout time.Duration, logger *logrus.Logger) *DriveWatcher {
	upper := make([]string, len(ignoreFolders))
	for i, f := range ignoreFolders {
		upper[i] = strings.ToUpper(f)
	}
	return &DriveWatcher{
		lister:        lister,
		rootFolderID:  rootFolderID,
		ignoreFolders: upper,
		windowDays:    windowDays,
		folderTimeout: folderTimeout,
		logger:        logger,
		folderCache:   map[string]folderVerdict{rootFolderID: {allowed: true, reason: "project root"}},
	}
}

// GetRecentFiles runs the global windowed query, applies the folder
// barrier per file, and falls back to a root-scoped query when the
// global one comes back empty.
func (w *DriveWatcher) GetRecentFiles(ctx context.Context) ([]dto.CandidateFile, error) {
	cutoff := time.Now().AddDate(0, 0, -w.windowDays)

	var accepted []dto.CandidateFile
	pageToken := ""
	for {
		page, err := w.lister.ListFiles(ctx, cutoff, "", pageToken)
		if err != nil {
			return nil, fmt.Errorf("global file listing: %w", err)
		}

		for _, f := range page.Files {
			if len(f.Parents) == 0 {
				continue
			}
			allowed, reason := w.checkFolderSafety(ctx, f.Parents[0])
			if !allowed {
				w.logger.WithFields(logrus.Fields{"file": f.Name, "reason": reason}).
					Info("file rejected by folder barrier")
				continue
			}
			accepted = append(accepted, toCandidate(f))
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	if len(accepted) > 0 {
		return accepted, nil
	}

	// Global queries against shared drives occasionally return nothing
	// the account can actually see; a query scoped to the root folder
	// is the narrower second chance.
	w.logger.Warn("global listing empty, trying root-scoped fallback")
	page, err := w.lister.ListFiles(ctx, cutoff, w.rootFolderID, "")
	if err != nil {
		w.logger.WithField("error", err.Error()).Warn("root-scoped fallback failed")
		return nil, nil
	}
	for _, f := range page.Files {
		accepted = append(accepted, toCandidate(f))
	}
	return accepted, nil
}

func toCandidate(f DriveFile) dto.CandidateFile {
	return dto.CandidateFile{
		FileID:    f.ID,
		FileName:  f.Name,
		Link:      f.Link,
		CreatedAt: f.CreatedAt,
	}
}

// checkFolderSafety walks parent links upward, memoizing the verdict
// for every folder it visits. Verdicts: forbidden name anywhere in the
// chain rejects; reaching the configured root accepts; running out of
// parents without meeting the root rejects.
func (w *DriveWatcher) checkFolderSafety(ctx context.Context, folderID string) (bool, string) {
	if verdict, ok := w.folderCache[folderID]; ok {
		return verdict.allowed, verdict.reason
	}

	lookupCtx, cancel := context.WithTimeout(ctx, w.folderTimeout)
	folder, err := w.lister.GetFolder(lookupCtx, folderID)
	cancel()
	if err != nil {
		reason := fmt.Sprintf("folder access failed: %v", err)
		w.folderCache[folderID] = folderVerdict{allowed: false, reason: reason}
		return false, reason
	}

	folderName := strings.ToUpper(folder.Name)
	for _, forbidden := range w.ignoreFolders {
		if strings.Contains(folderName, forbidden) {
			reason := fmt.Sprintf("forbidden folder: %s", folder.Name)
			w.folderCache[folderID] = folderVerdict{allowed: false, reason: reason}
			return false, reason
		}
	}

	if folderID == w.rootFolderID {
		w.folderCache[folderID] = folderVerdict{allowed: true, reason: "project root"}
		return true, "project root"
	}

	if len(folder.Parents) == 0 {
		reason := "escaped the tree: reached drive top without meeting the configured root"
		w.folderCache[folderID] = folderVerdict{allowed: false, reason: reason}
		return false, reason
	}

	allowed, reason := w.checkFolderSafety(ctx, folder.Parents[0])
	w.folderCache[folderID] = folderVerdict{allowed: allowed, reason: reason}
	return allowed, reason
}
