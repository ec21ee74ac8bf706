package editor

import (
	"github.com/devora/pkg/models"
)

// GenPhase represents the generation lifecycle state.
// Legal transitions: idle -> generating -> {applying, cancelled, failed} -> idle.
type GenPhase string

const (
	GenIdle       GenPhase = "idle"
	GenGenerating GenPhase = "generating"
	GenApplying   GenPhase = "applying"
	GenCancelled  GenPhase = "cancelled"
	GenFailed     GenPhase = "failed"
)

// PreviewMode selects what the preview pane renders
type PreviewMode string

const (
	PreviewDesktop PreviewMode = "desktop"
	PreviewTablet  PreviewMode = "tablet"
	PreviewMobile  PreviewMode = "mobile"
	PreviewOff     PreviewMode = "off"
)

// Settings holds per-user editor preferences
type Settings struct {
	Theme      string `json:"theme"`
	FontSize   int    `json:"font_size"`
	TabSize    int    `json:"tab_size"`
	WordWrap   bool   `json:"word_wrap"`
	AutoSave   bool   `json:"auto_save"`
	AIProvider string `json:"ai_provider"`
	AIModel    string `json:"ai_model"`
}

// SettingsPatch is a partial settings update; nil fields are left unchanged
type SettingsPatch struct {
	Theme      *string
	FontSize   *int
	TabSize    *int
	WordWrap   *bool
	AutoSave   *bool
	AIProvider *string
	AIModel    *string
}

// DefaultSettings returns the editor defaults for a fresh session
func DefaultSettings() Settings {
	return Settings{
		Theme:      "dark",
		FontSize:   14,
		TabSize:    2,
		WordWrap:   true,
		AutoSave:   false,
		AIProvider: "openai",
		AIModel:    "gpt-4o",
	}
}

// State is the canonical editor state. Invariants maintained by the store:
// file ids are unique within the project, OpenFileIDs is a subset of Files
// keys ordered by open recency (most recent last), and ActiveFileID is
// either empty or a member of OpenFileIDs.
type State struct {
	Project *models.Project

	Files     map[string]models.ProjectFile
	FileOrder []string // insertion order, used when assembling save payloads

	OpenFileIDs  []string
	ActiveFileID string

	SidebarOpen bool
	ChatOpen    bool
	Fullscreen  bool
	PreviewMode PreviewMode

	Phase              GenPhase
	GenerationProgress int

	HasUnsavedChanges bool
	Err               error
	Settings          Settings
}

// IsGenerating reports whether a generation is in flight
func (s State) IsGenerating() bool {
	return s.Phase == GenGenerating || s.Phase == GenApplying
}

func newState() State {
	return State{
		Files:       make(map[string]models.ProjectFile),
		SidebarOpen: true,
		ChatOpen:    true,
		PreviewMode: PreviewDesktop,
		Phase:       GenIdle,
		Settings:    DefaultSettings(),
	}
}

// clone returns a copy safe to hand to callers: maps and slices are copied
// so later store mutations cannot race with readers.
func (s *State) clone() State {
	out := *s
	out.Files = make(map[string]models.ProjectFile, len(s.Files))
	for id, f := range s.Files {
		out.Files[id] = f
	}
	out.FileOrder = append([]string(nil), s.FileOrder...)
	out.OpenFileIDs = append([]string(nil), s.OpenFileIDs...)
	if s.Project != nil {
		p := *s.Project
		p.Files = append([]models.ProjectFile(nil), s.Project.Files...)
		p.Conversation = append([]models.ChatMessage(nil), s.Project.Conversation...)
		out.Project = &p
	}
	return out
}

// orderedFiles assembles the file set in insertion order with current content
func (s *State) orderedFiles() []models.ProjectFile {
	out := make([]models.ProjectFile, 0, len(s.FileOrder))
	for _, id := range s.FileOrder {
		if f, ok := s.Files[id]; ok {
			out = append(out, f)
		}
	}
	return out
}
