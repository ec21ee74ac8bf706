package editor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devora/pkg/models"
)

// fakeBackend is an in-memory Backend with injectable failures. When the
// save gates are set, SaveProject signals saveStarted and then blocks until
// saveRelease is closed, letting tests interleave edits with a slow save.
type fakeBackend struct {
	projects  map[string]*models.Project
	saveCalls int
	lastSave  models.SaveProjectRequest
	saveErr   error
	fetchErr  error

	saveStarted chan struct{}
	saveRelease chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{projects: make(map[string]*models.Project)}
}

func (b *fakeBackend) FetchProject(_ context.Context, id string) (*models.Project, error) {
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	p, ok := b.projects[id]
	if !ok {
		return nil, &NotFoundError{Kind: "project", ID: id}
	}
	cp := *p
	return &cp, nil
}

func (b *fakeBackend) CreateProject(_ context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	p := &models.Project{
		ID:          "p-" + req.Name,
		Name:        req.Name,
		Description: req.Description,
		Version:     1,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	b.projects[p.ID] = p
	return p, nil
}

func (b *fakeBackend) SaveProject(_ context.Context, id string, req models.SaveProjectRequest) (*models.Project, error) {
	if b.saveStarted != nil {
		b.saveStarted <- struct{}{}
		<-b.saveRelease
	}
	b.saveCalls++
	b.lastSave = req
	if b.saveErr != nil {
		return nil, b.saveErr
	}
	p, ok := b.projects[id]
	if !ok {
		return nil, &NotFoundError{Kind: "project", ID: id}
	}
	p.Files = req.Files
	p.Version = req.Version + 1
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (b *fakeBackend) DeleteProject(_ context.Context, id string) error {
	delete(b.projects, id)
	return nil
}

// stubGenerator satisfies Generator for tests that never generate
type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, models.GenerateRequest, func(int)) (*models.GenerateResponse, error) {
	return &models.GenerateResponse{}, nil
}

func newTestStore(t *testing.T) (*Store, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	store := NewStore(backend, stubGenerator{})
	t.Cleanup(store.Close)

	_, err := store.CreateProject(context.Background(), "demo", "test project")
	require.NoError(t, err)
	return store, backend
}

func mustCreateFile(t *testing.T, s *Store, name, content string) string {
	t.Helper()
	id, err := s.CreateFile(models.ProjectFile{Name: name, Content: content})
	require.NoError(t, err)
	return id
}

func assertInvariants(t *testing.T, st State) {
	t.Helper()
	for _, id := range st.OpenFileIDs {
		_, ok := st.Files[id]
		assert.True(t, ok, "open file %s must exist in files", id)
	}
	if st.ActiveFileID != "" {
		assert.Contains(t, st.OpenFileIDs, st.ActiveFileID)
	}
}

func TestFileLifecycleInvariants(t *testing.T) {
	store, _ := newTestStore(t)

	a := mustCreateFile(t, store, "index.html", "<html></html>")
	b := mustCreateFile(t, store, "app.js", "console.log(1)")
	c := mustCreateFile(t, store, "style.css", "body {}")

	require.NoError(t, store.OpenFile(a))
	require.NoError(t, store.OpenFile(b))
	require.NoError(t, store.OpenFile(c))
	assertInvariants(t, store.Snapshot())

	require.NoError(t, store.CloseFile(b))
	assertInvariants(t, store.Snapshot())

	require.NoError(t, store.DeleteFile(c))
	st := store.Snapshot()
	assertInvariants(t, st)
	assert.Equal(t, a, st.ActiveFileID, "activation falls back to most recently opened remaining file")

	require.NoError(t, store.DeleteFile(a))
	st = store.Snapshot()
	assertInvariants(t, st)
	assert.Empty(t, st.ActiveFileID)
	assert.Empty(t, st.OpenFileIDs)
}

func TestDeleteOnlyOpenFileClearsActive(t *testing.T) {
	store, _ := newTestStore(t)

	id := mustCreateFile(t, store, "main.go", "package main")
	require.NoError(t, store.OpenFile(id))
	require.Equal(t, id, store.Snapshot().ActiveFileID)

	require.NoError(t, store.DeleteFile(id))
	assert.Empty(t, store.Snapshot().ActiveFileID)
}

func TestToggleSidebarIdempotence(t *testing.T) {
	store, _ := newTestStore(t)

	before := store.Snapshot().SidebarOpen
	store.ToggleSidebar()
	assert.Equal(t, !before, store.Snapshot().SidebarOpen)
	store.ToggleSidebar()
	assert.Equal(t, before, store.Snapshot().SidebarOpen)
}

func TestUpdateFileContent(t *testing.T) {
	store, _ := newTestStore(t)
	id := mustCreateFile(t, store, "app.js", "old")

	require.NoError(t, store.UpdateFileContent(id, "const x = 42"))

	st := store.Snapshot()
	assert.Equal(t, "const x = 42", st.Files[id].Content)
	assert.True(t, st.Files[id].IsDirty)
	assert.True(t, st.HasUnsavedChanges)
}

func TestUpdateFileContentUnknownID(t *testing.T) {
	store, _ := newTestStore(t)
	mustCreateFile(t, store, "app.js", "old")
	before := store.Snapshot()

	err := store.UpdateFileContent("no-such-id", "data")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	after := store.Snapshot()
	assert.Equal(t, len(before.Files), len(after.Files))
	assert.NoError(t, after.Err, "store error must stay untouched on unknown id")
}

func TestCreateProjectEmptyName(t *testing.T) {
	store, _ := newTestStore(t)
	before := store.Snapshot().Project

	_, err := store.CreateProject(context.Background(), "", "desc")

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, before.ID, store.Snapshot().Project.ID, "project must be unchanged")
}

func TestRenameFileCollision(t *testing.T) {
	store, _ := newTestStore(t)
	mustCreateFile(t, store, "index.html", "")
	id := mustCreateFile(t, store, "about.html", "")

	err := store.RenameFile(id, "index.html")

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "about.html", store.Snapshot().Files[id].Name)
}

func TestRenameFileKeepsDirectory(t *testing.T) {
	store, _ := newTestStore(t)
	id, err := store.CreateFile(models.ProjectFile{Name: "Button.tsx", Path: "src/components/Button.tsx"})
	require.NoError(t, err)

	require.NoError(t, store.RenameFile(id, "IconButton.tsx"))
	assert.Equal(t, "src/components/IconButton.tsx", store.Snapshot().Files[id].Path)
}

func TestSetActiveFileNotOpenIsSilent(t *testing.T) {
	store, _ := newTestStore(t)
	a := mustCreateFile(t, store, "a.js", "")
	b := mustCreateFile(t, store, "b.js", "")
	require.NoError(t, store.OpenFile(a))

	store.SetActiveFile(b) // b exists but is not open

	assert.Equal(t, a, store.Snapshot().ActiveFileID)
}

func TestCreateFileDoesNotOpen(t *testing.T) {
	store, _ := newTestStore(t)
	id := mustCreateFile(t, store, "util.ts", "")

	st := store.Snapshot()
	assert.NotContains(t, st.OpenFileIDs, id)
	assert.Empty(t, st.ActiveFileID)
}

func TestLoadProjectFailureLeavesStateUnchanged(t *testing.T) {
	store, _ := newTestStore(t)
	mustCreateFile(t, store, "keep.js", "kept")
	before := store.Snapshot()

	err := store.LoadProject(context.Background(), "missing")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	after := store.Snapshot()
	assert.Equal(t, before.Project.ID, after.Project.ID)
	assert.Len(t, after.Files, len(before.Files))
	assert.Error(t, after.Err)

	store.ClearError()
	assert.NoError(t, store.Snapshot().Err)
}

func TestSaveProjectNoChangesIsNoop(t *testing.T) {
	store, backend := newTestStore(t)

	require.NoError(t, store.SaveProject(context.Background()))
	assert.Zero(t, backend.saveCalls)
}

func TestSaveProjectClearsDirtyFlags(t *testing.T) {
	store, backend := newTestStore(t)
	id := mustCreateFile(t, store, "app.js", "x")

	require.NoError(t, store.SaveProject(context.Background()))

	st := store.Snapshot()
	assert.Equal(t, 1, backend.saveCalls)
	assert.False(t, st.Files[id].IsDirty)
	assert.False(t, st.HasUnsavedChanges)
	assert.Equal(t, int64(2), st.Project.Version)
}

func TestSaveProjectKeepsMidFlightEditsDirty(t *testing.T) {
	store, backend := newTestStore(t)
	id := mustCreateFile(t, store, "app.js", "v1")

	backend.saveStarted = make(chan struct{})
	backend.saveRelease = make(chan struct{})

	saveDone := make(chan error, 1)
	go func() {
		saveDone <- store.SaveProject(context.Background())
	}()

	// The save payload has been snapshotted; edit the file while the
	// backend call is still in flight, then let it finish.
	<-backend.saveStarted
	require.NoError(t, store.UpdateFileContent(id, "v2"))
	close(backend.saveRelease)
	require.NoError(t, <-saveDone)

	st := store.Snapshot()
	assert.Equal(t, "v2", st.Files[id].Content)
	assert.True(t, st.Files[id].IsDirty, "an edit during the save round-trip must stay dirty")
	assert.True(t, st.HasUnsavedChanges)

	backend.saveStarted = nil
	require.NoError(t, store.SaveProject(context.Background()))
	assert.Equal(t, 2, backend.saveCalls)
	require.Len(t, backend.lastSave.Files, 1)
	assert.Equal(t, "v2", backend.lastSave.Files[0].Content, "the follow-up save carries the newer content")
}

func TestSaveProjectKeepsMidFlightNewFilesDirty(t *testing.T) {
	store, backend := newTestStore(t)
	mustCreateFile(t, store, "app.js", "v1")

	backend.saveStarted = make(chan struct{})
	backend.saveRelease = make(chan struct{})

	saveDone := make(chan error, 1)
	go func() {
		saveDone <- store.SaveProject(context.Background())
	}()

	<-backend.saveStarted
	added := mustCreateFile(t, store, "style.css", "body {}")
	close(backend.saveRelease)
	require.NoError(t, <-saveDone)

	st := store.Snapshot()
	assert.True(t, st.Files[added].IsDirty)
	assert.True(t, st.HasUnsavedChanges, "a file created during the save still needs saving")
}

func TestSaveProjectConflict(t *testing.T) {
	store, backend := newTestStore(t)
	mustCreateFile(t, store, "app.js", "x")
	backend.saveErr = &ConflictError{ProjectID: "p-demo", LocalVersion: 1, RemoteVersion: 3}

	err := store.SaveProject(context.Background())

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	st := store.Snapshot()
	assert.Error(t, st.Err)
	assert.True(t, st.HasUnsavedChanges, "unsaved changes survive a conflicted save")
}

func TestUpdateSettingsShallowMerge(t *testing.T) {
	store, _ := newTestStore(t)
	theme := "light"
	size := 16

	store.UpdateSettings(SettingsPatch{Theme: &theme, FontSize: &size})

	st := store.Snapshot()
	assert.Equal(t, "light", st.Settings.Theme)
	assert.Equal(t, 16, st.Settings.FontSize)
	assert.Equal(t, 2, st.Settings.TabSize, "untouched settings keep their defaults")
}
