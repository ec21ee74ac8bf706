package deploy

import (
	"fmt"
	"strings"

	"github.com/zricethezav/gitleaks/v8/detect"

	"github.com/devora/pkg/models"
)

// SecretFinding is one leaked credential detected in a project file
type SecretFinding struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	Path        string `json:"path"`
	Line        int    `json:"line"`
}

// SecretsError aborts a deploy whose files contain leaked credentials
type SecretsError struct {
	Findings []SecretFinding
}

func (e *SecretsError) Error() string {
	paths := make([]string, 0, len(e.Findings))
	seen := map[string]bool{}
	for _, f := range e.Findings {
		if !seen[f.Path] {
			seen[f.Path] = true
			paths = append(paths, f.Path)
		}
	}
	return fmt.Sprintf("deploy blocked: %d potential secret(s) found in %s",
		len(e.Findings), strings.Join(paths, ", "))
}

// Scanner runs secret detection over project files before they leave the
// platform.
type Scanner struct {
	detector *detect.Detector
}

// NewScanner creates a scanner with the default gitleaks ruleset
func NewScanner() (*Scanner, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load secret detection rules: %w", err)
	}
	return &Scanner{detector: detector}, nil
}

// Scan checks every file and returns all findings. An empty result means
// the project is clean.
func (s *Scanner) Scan(files []models.ProjectFile) []SecretFinding {
	var findings []SecretFinding
	for _, file := range files {
		for _, f := range s.detector.DetectString(file.Content) {
			findings = append(findings, SecretFinding{
				RuleID:      f.RuleID,
				Description: f.Description,
				Path:        file.Path,
				Line:        f.StartLine + 1,
			})
		}
	}
	return findings
}
