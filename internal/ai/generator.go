package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"github.com/devora/internal/retry"
	"github.com/devora/pkg/models"
)

const systemInstructions = `You are Devora, an assistant that generates web application code.
Respond with a single JSON object and nothing else. Shape:
{
  "message": "short explanation of what you did",
  "plan": {"description": "...", "requires_confirmation": false, "steps": [{"description": "...", "affected_paths": ["..."]}]},
  "changes": [{"path": "src/App.tsx", "type": "create|modify|delete", "content": "full new file content"}]
}
Omit "plan" when the request needs no multi-step work. For type "delete" omit "content".`

// Caller is the subset of Connector the generation service needs
type Caller interface {
	Call(ctx context.Context, input string, options ...llms.CallOption) (string, error)
}

// Service turns prompts into generation results. It retries retryable
// transport failures with exponential backoff and repairs malformed model
// JSON before giving up on a response.
type Service struct {
	caller   Caller
	retryCfg retry.Config
}

// NewService creates a generation service around an AI connector
func NewService(caller Caller) *Service {
	return &Service{
		caller:   caller,
		retryCfg: retry.GenerationConfig(),
	}
}

// NewServiceWithRetry creates a generation service with a custom retry policy
func NewServiceWithRetry(caller Caller, cfg retry.Config) *Service {
	return &Service{caller: caller, retryCfg: cfg}
}

// genPayload is the wire shape the model is instructed to produce
type genPayload struct {
	Message string `json:"message"`
	Plan    *struct {
		Description          string `json:"description"`
		RequiresConfirmation bool   `json:"requires_confirmation"`
		Steps                []struct {
			Description   string   `json:"description"`
			AffectedPaths []string `json:"affected_paths"`
		} `json:"steps"`
	} `json:"plan"`
	Changes []struct {
		Path    string `json:"path"`
		Type    string `json:"type"`
		Content string `json:"content"`
	} `json:"changes"`
}

// Generate runs one generation. Streamed chunks only advance the progress
// callback; the response is parsed and returned as a whole, so callers see
// either the complete change set or none of it.
func (s *Service) Generate(ctx context.Context, req models.GenerateRequest, progress func(pct int)) (*models.GenerateResponse, error) {
	prompt := buildPrompt(req)

	chunks := 0
	streamOpt := llms.WithStreamingFunc(func(_ context.Context, _ []byte) error {
		chunks++
		if progress != nil {
			pct := chunks * 2
			if pct > 95 {
				pct = 95
			}
			progress(pct)
		}
		return nil
	})

	// stopRetries short-circuits the backoff loop on non-retryable errors
	genCtx, stopRetries := context.WithCancel(ctx)
	defer stopRetries()

	var (
		raw       string
		permanent error
	)
	result := retry.WithBackoffAndReason(genCtx, s.retryCfg, func() (error, string) {
		var err error
		raw, err = s.caller.Call(genCtx, prompt, streamOpt)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err(), "cancelled"
			}
			if !retry.IsRetryable(err) {
				permanent = err
				stopRetries()
			}
			return err, err.Error()
		}
		return nil, ""
	})
	if !result.Success {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if permanent != nil {
			return nil, fmt.Errorf("generation failed: %w", permanent)
		}
		return nil, fmt.Errorf("generation failed after %d attempts: %w", result.Attempts, result.LastError)
	}

	resp, stats, err := parseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generation response: %w", err)
	}
	if stats.WasRepaired {
		log.Debug().
			Strs("strategies", stats.RepairStrategies).
			Int("original_bytes", stats.OriginalBytes).
			Msg("repaired model JSON")
	}
	if progress != nil {
		progress(100)
	}
	return resp, nil
}

func buildPrompt(req models.GenerateRequest) string {
	var b strings.Builder
	b.WriteString(systemInstructions)
	b.WriteString("\n\n")

	if len(req.Conversation) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, msg := range req.Conversation {
			fmt.Fprintf(&b, "[%s] %s\n", msg.Role, msg.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Request: %s\n", req.Prompt)
	return b.String()
}

func parseResponse(raw string) (*models.GenerateResponse, RepairStats, error) {
	repaired, stats, err := RepairJSON(raw)
	if err != nil {
		return nil, stats, err
	}

	var payload genPayload
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return nil, stats, err
	}

	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Content:   payload.Message,
		Status:    models.MessageSent,
		Timestamp: time.Now(),
	}

	if payload.Plan != nil {
		plan := &models.ExecutionPlan{
			ID:                   uuid.NewString(),
			Description:          payload.Plan.Description,
			Status:               models.PlanPending,
			RequiresConfirmation: payload.Plan.RequiresConfirmation,
		}
		for _, step := range payload.Plan.Steps {
			plan.Steps = append(plan.Steps, models.ExecutionStep{
				ID:            uuid.NewString(),
				Description:   step.Description,
				Status:        models.StepPending,
				AffectedPaths: step.AffectedPaths,
			})
		}
		msg.Plan = plan
	}

	changes := make([]models.CodeChange, 0, len(payload.Changes))
	for _, c := range payload.Changes {
		changeType := models.ChangeType(c.Type)
		switch changeType {
		case models.ChangeCreate, models.ChangeModify, models.ChangeDelete:
		default:
			changeType = models.ChangeCreate
		}
		changes = append(changes, models.CodeChange{
			Path:       c.Path,
			NewContent: c.Content,
			Type:       changeType,
		})
	}
	msg.Changes = changes

	return &models.GenerateResponse{Message: msg, Changes: changes}, stats, nil
}
