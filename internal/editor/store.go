package editor

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/devora/pkg/models"
)

// Backend is the external project API the store persists through. The
// concrete implementation lives in internal/client; it converts transport
// and status failures into the editor error taxonomy.
type Backend interface {
	FetchProject(ctx context.Context, id string) (*models.Project, error)
	CreateProject(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error)
	SaveProject(ctx context.Context, id string, req models.SaveProjectRequest) (*models.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// Generator produces a generation result for a prompt. Implementations must
// honor context cancellation and may report progress through the callback.
type Generator interface {
	Generate(ctx context.Context, req models.GenerateRequest, progress func(pct int)) (*models.GenerateResponse, error)
}

type command struct {
	fn   func(*State) error
	done chan error
}

// Store owns the canonical editor state. All mutations are funneled through
// a single goroutine consuming a command channel, so no two actions ever
// interleave mid-mutation. Remote work (load, save, generate) runs on the
// caller's goroutine and re-enters state only through submitted commands.
type Store struct {
	backend Backend
	gen     Generator

	cmds chan command
	quit chan struct{}

	// touched only from the command loop
	state     State
	cancelGen context.CancelFunc
}

// NewStore creates a store and starts its command loop
func NewStore(backend Backend, gen Generator) *Store {
	s := &Store{
		backend: backend,
		gen:     gen,
		cmds:    make(chan command),
		quit:    make(chan struct{}),
		state:   newState(),
	}
	go s.loop()
	return s
}

func (s *Store) loop() {
	for {
		select {
		case cmd := <-s.cmds:
			cmd.done <- cmd.fn(&s.state)
		case <-s.quit:
			if s.cancelGen != nil {
				s.cancelGen()
			}
			return
		}
	}
}

// do submits a mutation to the command loop and waits for it to finish
func (s *Store) do(fn func(*State) error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case s.cmds <- cmd:
		return <-cmd.done
	case <-s.quit:
		return &ValidationError{Reason: "store is closed"}
	}
}

// Close stops the command loop and cancels any in-flight generation
func (s *Store) Close() {
	close(s.quit)
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	var snap State
	s.do(func(st *State) error {
		snap = st.clone()
		return nil
	})
	return snap
}

// Project lifecycle

// LoadProject fetches a project and replaces the current editor state. On
// failure the state is left unchanged apart from Err.
func (s *Store) LoadProject(ctx context.Context, id string) error {
	project, err := s.backend.FetchProject(ctx, id)
	if err != nil {
		s.do(func(st *State) error {
			st.Err = err
			return nil
		})
		return err
	}
	return s.do(func(st *State) error {
		st.Project = project
		st.Files = make(map[string]models.ProjectFile, len(project.Files))
		st.FileOrder = st.FileOrder[:0]
		for _, f := range project.Files {
			f.IsDirty = false
			st.Files[f.ID] = f
			st.FileOrder = append(st.FileOrder, f.ID)
		}
		st.OpenFileIDs = nil
		st.ActiveFileID = ""
		st.HasUnsavedChanges = false
		st.Err = nil
		log.Debug().Str("project_id", project.ID).Int("files", len(project.Files)).Msg("project loaded")
		return nil
	})
}

// SaveProject persists the current file set. It succeeds trivially when
// there are no unsaved changes. A stale version surfaces as ConflictError.
func (s *Store) SaveProject(ctx context.Context) error {
	var (
		id  string
		req models.SaveProjectRequest
	)
	err := s.do(func(st *State) error {
		if st.Project == nil {
			return &ValidationError{Reason: "no project loaded"}
		}
		if !st.HasUnsavedChanges {
			id = ""
			return nil
		}
		id = st.Project.ID
		req = models.SaveProjectRequest{
			Files:        st.orderedFiles(),
			Conversation: append([]models.ChatMessage(nil), st.Project.Conversation...),
			Version:      st.Project.Version,
		}
		return nil
	})
	if err != nil || id == "" {
		return err
	}

	// The file set as it went over the wire. Edits that land while the
	// remote call is in flight must stay dirty after it settles.
	sent := make(map[string]models.ProjectFile, len(req.Files))
	for _, f := range req.Files {
		sent[f.ID] = f
	}

	saved, err := s.backend.SaveProject(ctx, id, req)
	if err != nil {
		s.do(func(st *State) error {
			st.Err = err
			return nil
		})
		return err
	}
	return s.do(func(st *State) error {
		if st.Project != nil && st.Project.ID == saved.ID {
			st.Project.Version = saved.Version
			st.Project.UpdatedAt = saved.UpdatedAt
		}
		unsaved := len(st.Files) != len(sent)
		for fid, f := range st.Files {
			was, ok := sent[fid]
			if ok && f.Content == was.Content && f.Path == was.Path && f.Name == was.Name {
				f.IsDirty = false
				st.Files[fid] = f
				continue
			}
			unsaved = true
		}
		st.HasUnsavedChanges = unsaved
		st.Err = nil
		return nil
	})
}

// CreateProject allocates a new empty project and makes it active. An empty
// name fails with ValidationError before any remote call.
func (s *Store) CreateProject(ctx context.Context, name, description string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", &ValidationError{Reason: "project name must not be empty"}
	}
	project, err := s.backend.CreateProject(ctx, models.CreateProjectRequest{Name: name, Description: description})
	if err != nil {
		s.do(func(st *State) error {
			st.Err = err
			return nil
		})
		return "", err
	}
	err = s.do(func(st *State) error {
		st.Project = project
		st.Files = make(map[string]models.ProjectFile)
		st.FileOrder = nil
		st.OpenFileIDs = nil
		st.ActiveFileID = ""
		st.HasUnsavedChanges = false
		st.Err = nil
		return nil
	})
	return project.ID, err
}

// File lifecycle

// CreateFile inserts a new file and returns its id. The file is not opened.
func (s *Store) CreateFile(file models.ProjectFile) (string, error) {
	if strings.TrimSpace(file.Name) == "" {
		return "", &ValidationError{Reason: "file name must not be empty"}
	}
	if file.Path == "" {
		file.Path = file.Name
	}
	id := uuid.NewString()
	err := s.do(func(st *State) error {
		for _, other := range st.Files {
			if other.Path == file.Path {
				return &ValidationError{Reason: "a file already exists at " + file.Path}
			}
		}
		now := time.Now()
		file.ID = id
		file.IsDirty = true
		file.CreatedAt = now
		file.UpdatedAt = now
		st.Files[id] = file
		st.FileOrder = append(st.FileOrder, id)
		st.HasUnsavedChanges = true
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// DeleteFile removes a file everywhere. If it was active, activation falls
// back to the most recently opened remaining file, or none.
func (s *Store) DeleteFile(id string) error {
	return s.do(func(st *State) error {
		if _, ok := st.Files[id]; !ok {
			return &NotFoundError{Kind: "file", ID: id}
		}
		delete(st.Files, id)
		st.FileOrder = removeID(st.FileOrder, id)
		st.OpenFileIDs = removeID(st.OpenFileIDs, id)
		if st.ActiveFileID == id {
			st.ActiveFileID = lastID(st.OpenFileIDs)
		}
		st.HasUnsavedChanges = true
		return nil
	})
}

// RenameFile renames a file, keeping its directory. A collision with
// another file's path fails with ValidationError.
func (s *Store) RenameFile(id, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return &ValidationError{Reason: "file name must not be empty"}
	}
	return s.do(func(st *State) error {
		f, ok := st.Files[id]
		if !ok {
			return &NotFoundError{Kind: "file", ID: id}
		}
		newPath := newName
		if dir := path.Dir(f.Path); dir != "." {
			newPath = path.Join(dir, newName)
		}
		for otherID, other := range st.Files {
			if otherID != id && other.Path == newPath {
				return &ValidationError{Reason: "a file already exists at " + newPath}
			}
		}
		f.Name = newName
		f.Path = newPath
		f.IsDirty = true
		f.UpdatedAt = time.Now()
		st.Files[id] = f
		st.HasUnsavedChanges = true
		return nil
	})
}

// UpdateFileContent replaces a file's content and marks it dirty. An
// unknown id changes nothing and reports NotFoundError to the caller; the
// store Err field stays untouched.
func (s *Store) UpdateFileContent(id, content string) error {
	return s.do(func(st *State) error {
		f, ok := st.Files[id]
		if !ok {
			return &NotFoundError{Kind: "file", ID: id}
		}
		f.Content = content
		f.IsDirty = true
		f.UpdatedAt = time.Now()
		st.Files[id] = f
		st.HasUnsavedChanges = true
		return nil
	})
}

// OpenFile adds a file to the open set and makes it active. Reopening an
// already open file just refreshes its recency.
func (s *Store) OpenFile(id string) error {
	return s.do(func(st *State) error {
		if _, ok := st.Files[id]; !ok {
			return &NotFoundError{Kind: "file", ID: id}
		}
		st.OpenFileIDs = append(removeID(st.OpenFileIDs, id), id)
		st.ActiveFileID = id
		return nil
	})
}

// CloseFile removes a file from the open set without deleting its content.
// Activation falls back as in DeleteFile.
func (s *Store) CloseFile(id string) error {
	return s.do(func(st *State) error {
		st.OpenFileIDs = removeID(st.OpenFileIDs, id)
		if st.ActiveFileID == id {
			st.ActiveFileID = lastID(st.OpenFileIDs)
		}
		return nil
	})
}

// SetActiveFile activates an open file. Ids outside the open set are
// silently ignored.
func (s *Store) SetActiveFile(id string) {
	s.do(func(st *State) error {
		for _, open := range st.OpenFileIDs {
			if open == id {
				st.ActiveFileID = id
				return nil
			}
		}
		return nil
	})
}

// UI toggles: pure state flips, no side effects

func (s *Store) ToggleSidebar() {
	s.do(func(st *State) error {
		st.SidebarOpen = !st.SidebarOpen
		return nil
	})
}

func (s *Store) ToggleChat() {
	s.do(func(st *State) error {
		st.ChatOpen = !st.ChatOpen
		return nil
	})
}

func (s *Store) ToggleFullscreen() {
	s.do(func(st *State) error {
		st.Fullscreen = !st.Fullscreen
		return nil
	})
}

func (s *Store) SetPreviewMode(mode PreviewMode) {
	s.do(func(st *State) error {
		st.PreviewMode = mode
		return nil
	})
}

// UpdateSettings shallow-merges the patch into the current settings
func (s *Store) UpdateSettings(patch SettingsPatch) {
	s.do(func(st *State) error {
		if patch.Theme != nil {
			st.Settings.Theme = *patch.Theme
		}
		if patch.FontSize != nil {
			st.Settings.FontSize = *patch.FontSize
		}
		if patch.TabSize != nil {
			st.Settings.TabSize = *patch.TabSize
		}
		if patch.WordWrap != nil {
			st.Settings.WordWrap = *patch.WordWrap
		}
		if patch.AutoSave != nil {
			st.Settings.AutoSave = *patch.AutoSave
		}
		if patch.AIProvider != nil {
			st.Settings.AIProvider = *patch.AIProvider
		}
		if patch.AIModel != nil {
			st.Settings.AIModel = *patch.AIModel
		}
		return nil
	})
}

// ClearError resets the error state
func (s *Store) ClearError() {
	s.do(func(st *State) error {
		st.Err = nil
		return nil
	})
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func lastID(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[len(ids)-1]
}
