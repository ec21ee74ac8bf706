package editor

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/devora/pkg/models"
)

// GenerateCode runs one AI generation for the prompt. Lifecycle:
// idle -> generating -> {applying, cancelled, failed} -> idle. Only one
// generation may be in flight per store; starting another while one is
// active is rejected with ValidationError. Streamed changes are buffered by
// the generator and applied only during the applying phase, so a cancelled
// generation never leaves a partial apply behind.
//
// The phase is always back at idle once this returns, whatever the outcome.
func (s *Store) GenerateCode(ctx context.Context, prompt string) error {
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var req models.GenerateRequest
	err := s.do(func(st *State) error {
		if st.Phase != GenIdle {
			return &ValidationError{Reason: "a generation is already in flight"}
		}
		if st.Project == nil {
			return &ValidationError{Reason: "no project loaded"}
		}
		st.Phase = GenGenerating
		st.GenerationProgress = 0
		s.cancelGen = cancel

		st.Project.Conversation = append(st.Project.Conversation, models.ChatMessage{
			ID:        uuid.NewString(),
			Role:      models.RoleUser,
			Content:   prompt,
			Status:    models.MessageSent,
			Timestamp: time.Now(),
		})
		req = models.GenerateRequest{
			Prompt:       prompt,
			ProjectID:    st.Project.ID,
			Conversation: append([]models.ChatMessage(nil), st.Project.Conversation...),
		}
		return nil
	})
	if err != nil {
		return err
	}

	resp, genErr := s.gen.Generate(genCtx, req, func(pct int) {
		s.do(func(st *State) error {
			if st.Phase == GenGenerating {
				st.GenerationProgress = pct
			}
			return nil
		})
	})

	cancelled := genErr != nil && (errors.Is(genErr, context.Canceled) || genCtx.Err() != nil)

	return s.do(func(st *State) error {
		s.cancelGen = nil
		defer func() { st.Phase = GenIdle }()

		switch {
		case cancelled:
			st.Phase = GenCancelled
			st.Project.Conversation = append(st.Project.Conversation, models.ChatMessage{
				ID:        uuid.NewString(),
				Role:      models.RoleSystem,
				Content:   "Generation cancelled.",
				Status:    models.MessageSent,
				Timestamp: time.Now(),
			})
			log.Debug().Str("project_id", req.ProjectID).Msg("generation cancelled")
			return nil

		case genErr != nil:
			st.Phase = GenFailed
			st.Err = genErr
			st.Project.Conversation = append(st.Project.Conversation, models.ChatMessage{
				ID:        uuid.NewString(),
				Role:      models.RoleAssistant,
				Content:   genErr.Error(),
				Status:    models.MessageError,
				Timestamp: time.Now(),
			})
			log.Warn().Err(genErr).Str("project_id", req.ProjectID).Msg("generation failed")
			return nil

		default:
			st.Phase = GenApplying
			for _, change := range resp.Changes {
				applyChange(st, change)
			}
			msg := resp.Message
			if msg.ID == "" {
				msg.ID = uuid.NewString()
			}
			msg.Status = models.MessageSent
			st.Project.Conversation = append(st.Project.Conversation, msg)
			if len(resp.Changes) > 0 {
				st.HasUnsavedChanges = true
			}
			st.GenerationProgress = 100
			log.Debug().Str("project_id", req.ProjectID).Int("changes", len(resp.Changes)).Msg("generation applied")
			return nil
		}
	})
}

// CancelGeneration requests cooperative cancellation of the in-flight
// generation. It is a no-op when none is active. The phase is guaranteed to
// return to idle once the generator acknowledges the cancel.
func (s *Store) CancelGeneration() {
	s.do(func(st *State) error {
		if s.cancelGen != nil {
			s.cancelGen()
		}
		return nil
	})
}

// applyChange merges one code change into the file set. Changes address
// files by path; a modify for an unknown path degrades to a create.
func applyChange(st *State, change models.CodeChange) {
	now := time.Now()

	var targetID string
	for id, f := range st.Files {
		if f.Path == change.Path {
			targetID = id
			break
		}
	}

	switch change.Type {
	case models.ChangeDelete:
		if targetID == "" {
			return
		}
		delete(st.Files, targetID)
		st.FileOrder = removeID(st.FileOrder, targetID)
		st.OpenFileIDs = removeID(st.OpenFileIDs, targetID)
		if st.ActiveFileID == targetID {
			st.ActiveFileID = lastID(st.OpenFileIDs)
		}

	case models.ChangeModify:
		if targetID == "" {
			insertGeneratedFile(st, change, now)
			return
		}
		f := st.Files[targetID]
		f.Content = change.NewContent
		f.IsDirty = true
		f.UpdatedAt = now
		st.Files[targetID] = f

	default: // create
		if targetID != "" {
			f := st.Files[targetID]
			f.Content = change.NewContent
			f.IsDirty = true
			f.UpdatedAt = now
			st.Files[targetID] = f
			return
		}
		insertGeneratedFile(st, change, now)
	}
}

func insertGeneratedFile(st *State, change models.CodeChange, now time.Time) {
	id := uuid.NewString()
	st.Files[id] = models.ProjectFile{
		ID:        id,
		Name:      path.Base(change.Path),
		Path:      change.Path,
		Content:   change.NewContent,
		Language:  languageForPath(change.Path),
		IsDirty:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	st.FileOrder = append(st.FileOrder, id)
}

func languageForPath(p string) string {
	switch path.Ext(p) {
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	case ".css":
		return "css"
	case ".html":
		return "html"
	case ".json":
		return "json"
	case ".md":
		return "markdown"
	case ".go":
		return "go"
	default:
		return "plaintext"
	}
}
