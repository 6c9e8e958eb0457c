package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	globalFiles []DriveFile
	globalErr   error
	rootFiles   []DriveFile
	rootErr     error

	folders map[string]*FolderMeta

	folderCalls map[string]int
}

func (f *fakeLister) ListFiles(_ context.Context, _ time.Time, folderID, _ string) (*FilePage, error) {
	if folderID == "" {
		if f.globalErr != nil {
			return nil, f.globalErr
		}
		return &FilePage{Files: f.globalFiles}, nil
	}
	if f.rootErr != nil {
		return nil, f.rootErr
	}
	return &FilePage{Files: f.rootFiles}, nil
}

func (f *fakeLister) GetFolder(_ context.Context, folderID string) (*FolderMeta, error) {
	if f.folderCalls == nil {
		f.folderCalls = make(map[string]int)
	}
	f.folderCalls[folderID]++
	folder, ok := f.folders[folderID]
	if !ok {
		return nil, errors.New("folder not found")
	}
	return folder, nil
}

func newTestWatcher(lister FileLister) *DriveWatcher {
	return NewDriveWatcher(lister, "root", []string{"01 - ENTRADAS", "02 - SAÍDAS"},
		1, time.Second, testLogger())
}

func TestGetRecentFilesAcceptsFilesUnderRoot(t *testing.T) {
	lister := &fakeLister{
		globalFiles: []DriveFile{
			{ID: "f1", Name: "guia_iss.pdf", Parents: []string{"clientA"}},
		},
		folders: map[string]*FolderMeta{
			"clientA": {ID: "clientA", Name: "CLIENTE A", Parents: []string{"root"}},
		},
	}

	files, err := newTestWatcher(lister).GetRecentFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "f1", files[0].FileID)
	assert.Equal(t, "guia_iss.pdf", files[0].FileName)
}

func TestGetRecentFilesRejectsForbiddenAncestor(t *testing.T) {
	// f1 sits two levels under a forbidden folder, f2 under a clean one.
	lister := &fakeLister{
		globalFiles: []DriveFile{
			{ID: "f1", Name: "nota.pdf", Parents: []string{"deep"}},
			{ID: "f2", Name: "guia.pdf", Parents: []string{"fiscal"}},
		},
		folders: map[string]*FolderMeta{
			"deep":     {ID: "deep", Name: "2026", Parents: []string{"entradas"}},
			"entradas": {ID: "entradas", Name: "01 - ENTRADAS", Parents: []string{"root"}},
			"fiscal":   {ID: "fiscal", Name: "FISCAL", Parents: []string{"root"}},
		},
	}

	files, err := newTestWatcher(lister).GetRecentFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "f2", files[0].FileID)
}

func TestGetRecentFilesForbiddenNameMatchIsCaseInsensitiveSubstring(t *testing.T) {
	lister := &fakeLister{
		globalFiles: []DriveFile{
			{ID: "f1", Name: "nota.pdf", Parents: []string{"sub"}},
		},
		folders: map[string]*FolderMeta{
			"sub": {ID: "sub", Name: "backup 01 - entradas antigas", Parents: []string{"root"}},
		},
	}

	files, err := newTestWatcher(lister).GetRecentFiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGetRecentFilesRejectsEscapedTree(t *testing.T) {
	// Chain reaches the drive top without ever meeting the root.
	lister := &fakeLister{
		globalFiles: []DriveFile{
			{ID: "f1", Name: "alheio.pdf", Parents: []string{"other"}},
		},
		folders: map[string]*FolderMeta{
			"other": {ID: "other", Name: "OUTRO PROJETO", Parents: nil},
		},
	}

	files, err := newTestWatcher(lister).GetRecentFiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGetRecentFilesSkipsFilesWithoutParents(t *testing.T) {
	lister := &fakeLister{
		globalFiles: []DriveFile{
			{ID: "f1", Name: "orfao.pdf", Parents: nil},
		},
	}

	files, err := newTestWatcher(lister).GetRecentFiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGetRecentFilesMemoizesFolderVerdicts(t *testing.T) {
	// Three files share one parent; the chain must be resolved once.
	lister := &fakeLister{
		globalFiles: []DriveFile{
			{ID: "f1", Name: "a.pdf", Parents: []string{"clientA"}},
			{ID: "f2", Name: "b.pdf", Parents: []string{"clientA"}},
			{ID: "f3", Name: "c.pdf", Parents: []string{"clientA"}},
		},
		folders: map[string]*FolderMeta{
			"clientA": {ID: "clientA", Name: "CLIENTE A", Parents: []string{"root"}},
		},
	}

	files, err := newTestWatcher(lister).GetRecentFiles(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 3)
	assert.Equal(t, 1, lister.folderCalls["clientA"])
	assert.Equal(t, 0, lister.folderCalls["root"], "the root verdict is pre-seeded")
}

func TestGetRecentFilesFolderLookupFailureRejects(t *testing.T) {
	lister := &fakeLister{
		globalFiles: []DriveFile{
			{ID: "f1", Name: "guia.pdf", Parents: []string{"ghost"}},
		},
		folders: map[string]*FolderMeta{},
	}

	files, err := newTestWatcher(lister).GetRecentFiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGetRecentFilesRootScopedFallback(t *testing.T) {
	lister := &fakeLister{
		globalFiles: nil,
		rootFiles: []DriveFile{
			{ID: "f9", Name: "guia_direta.pdf", Parents: []string{"root"}},
		},
	}

	files, err := newTestWatcher(lister).GetRecentFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "f9", files[0].FileID)
}

func TestGetRecentFilesFallbackFailureIsEmptyNotError(t *testing.T) {
	lister := &fakeLister{
		globalFiles: nil,
		rootErr:     errors.New("quota"),
	}

	files, err := newTestWatcher(lister).GetRecentFiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGetRecentFilesGlobalListingErrorIsFatal(t *testing.T) {
	lister := &fakeLister{globalErr: errors.New("backend error")}

	_, err := newTestWatcher(lister).GetRecentFiles(context.Background())
	assert.Error(t, err)
}
