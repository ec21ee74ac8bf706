package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/devora/internal/retry"
	"github.com/devora/pkg/models"
)

// scriptedCaller returns its responses in order, one per call
type scriptedCaller struct {
	responses []string
	errs      []error
	calls     int
}

func (c *scriptedCaller) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	i := c.calls
	c.calls++
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return c.responses[len(c.responses)-1], nil
}

func testRetryConfig() retry.Config {
	return retry.Config{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2.0,
	}
}

const validPayload = `{
	"message": "Built a counter app.",
	"changes": [
		{"path": "index.html", "type": "create", "content": "<html></html>"},
		{"path": "app.js", "type": "modify", "content": "render()"}
	]
}`

func TestGenerateParsesChanges(t *testing.T) {
	svc := NewServiceWithRetry(&scriptedCaller{responses: []string{validPayload}}, testRetryConfig())

	var lastPct int
	resp, err := svc.Generate(context.Background(), models.GenerateRequest{Prompt: "counter app"}, func(pct int) {
		lastPct = pct
	})

	require.NoError(t, err)
	assert.Equal(t, "Built a counter app.", resp.Message.Content)
	assert.Equal(t, models.RoleAssistant, resp.Message.Role)
	require.Len(t, resp.Changes, 2)
	assert.Equal(t, models.ChangeCreate, resp.Changes[0].Type)
	assert.Equal(t, models.ChangeModify, resp.Changes[1].Type)
	assert.Equal(t, 100, lastPct)
}

func TestGenerateRepairsFencedJSON(t *testing.T) {
	fenced := "Here you go:\n```json\n" + validPayload + "\n```"
	svc := NewServiceWithRetry(&scriptedCaller{responses: []string{fenced}}, testRetryConfig())

	resp, err := svc.Generate(context.Background(), models.GenerateRequest{Prompt: "x"}, nil)

	require.NoError(t, err)
	assert.Len(t, resp.Changes, 2)
}

func TestGenerateParsesPlan(t *testing.T) {
	payload := `{
		"message": "Proposed a refactor.",
		"plan": {
			"description": "Split App into components",
			"requires_confirmation": true,
			"steps": [
				{"description": "Extract header", "affected_paths": ["src/Header.tsx"]},
				{"description": "Extract footer", "affected_paths": ["src/Footer.tsx"]}
			]
		},
		"changes": []
	}`
	svc := NewServiceWithRetry(&scriptedCaller{responses: []string{payload}}, testRetryConfig())

	resp, err := svc.Generate(context.Background(), models.GenerateRequest{Prompt: "refactor"}, nil)

	require.NoError(t, err)
	require.NotNil(t, resp.Message.Plan)
	assert.Equal(t, models.PlanPending, resp.Message.Plan.Status)
	assert.True(t, resp.Message.Plan.RequiresConfirmation)
	require.Len(t, resp.Message.Plan.Steps, 2)
	assert.Equal(t, models.StepPending, resp.Message.Plan.Steps[0].Status)
}

func TestGenerateRetriesTransientErrors(t *testing.T) {
	caller := &scriptedCaller{
		errs:      []error{errors.New("503 service unavailable"), nil},
		responses: []string{"", validPayload},
	}
	svc := NewServiceWithRetry(caller, testRetryConfig())

	resp, err := svc.Generate(context.Background(), models.GenerateRequest{Prompt: "x"}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, caller.calls)
	assert.Len(t, resp.Changes, 2)
}

func TestGenerateFailsFastOnPermanentError(t *testing.T) {
	caller := &scriptedCaller{errs: []error{errors.New("invalid api key"), errors.New("invalid api key"), errors.New("invalid api key")}}
	svc := NewServiceWithRetry(caller, testRetryConfig())

	_, err := svc.Generate(context.Background(), models.GenerateRequest{Prompt: "x"}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, caller.calls, "a non-retryable error must not be retried")
}

func TestGenerateHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	caller := &scriptedCaller{errs: []error{context.Canceled}}
	svc := NewServiceWithRetry(caller, testRetryConfig())

	_, err := svc.Generate(ctx, models.GenerateRequest{Prompt: "x"}, nil)

	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildPromptIncludesConversation(t *testing.T) {
	prompt := buildPrompt(models.GenerateRequest{
		Prompt: "add dark mode",
		Conversation: []models.ChatMessage{
			{Role: models.RoleUser, Content: "build a blog"},
			{Role: models.RoleAssistant, Content: "Done."},
		},
	})

	assert.Contains(t, prompt, "[user] build a blog")
	assert.Contains(t, prompt, "[assistant] Done.")
	assert.Contains(t, prompt, "Request: add dark mode")
}
