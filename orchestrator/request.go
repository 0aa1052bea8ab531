package orchestrator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/randalmurphal/seedrepo/document"
	seederrors "github.com/randalmurphal/seedrepo/errors"
)

// Project name bounds, in runes.
const (
	MinProjectNameLen = 2
	MaxProjectNameLen = 80
)

// Request is one orchestration attempt.
type Request struct {
	Mode           document.Mode
	ProjectName    string
	CallerIdentity string // User email or id, for logs and the repo description
	Credential     string // GitHub OAuth token; never logged
	Documents      []document.Source
}

// Validate checks the request shape. Failures are InvalidRequest.
func (r Request) Validate() error {
	if err := r.validate(); err != nil {
		return seederrors.New(stageValidate, seederrors.KindInvalidRequest, err)
	}
	return nil
}

func (r Request) validate() error {
	if _, err := document.InstructionFilename(r.Mode); err != nil {
		return err
	}

	name := strings.TrimSpace(r.ProjectName)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return fmt.Errorf("project name is required")
	case n < MinProjectNameLen:
		return fmt.Errorf("project name must be at least %d characters", MinProjectNameLen)
	case n > MaxProjectNameLen:
		return fmt.Errorf("project name must be at most %d characters", MaxProjectNameLen)
	}

	if len(r.Documents) == 0 {
		return fmt.Errorf("at least one document is required")
	}

	targets := make(map[string]bool, len(r.Documents))
	for i, doc := range r.Documents {
		if doc == nil {
			return fmt.Errorf("document %d is nil", i)
		}
		if err := document.ValidateTarget(doc.Target()); err != nil {
			return err
		}
		targets[doc.Target()] = true
	}

	if r.Mode == document.ModeLight {
		for _, required := range []string{document.TargetPRD, document.TargetArchitecture} {
			if !targets[required] {
				return fmt.Errorf("light mode requires %s", required)
			}
		}
	}
	return nil
}
