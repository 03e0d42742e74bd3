package provider

import (
	"errors"
	"fmt"
)

var (
	ErrAuthFailed   = errors.New("authentication failed")
	ErrRepoNotFound = errors.New("repository not found")
)

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts API errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrUnknownPlatform) {
		return &UserError{
			Message: "Unknown repository store",
			Hint:    "Supported stores are github and gitlab (--repo-store or REPO_STORE).",
			Err:     err,
		}
	}

	if errors.Is(err, ErrAuthFailed) {
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that the Drone user token is valid for the server.\n  - GitHub: Set GITHUB_DRONE_TOKEN\n  - GitLab: Set GITLAB_DRONE_TOKEN",
			Err:     err,
		}
	}

	if errors.Is(err, ErrRepoNotFound) {
		return &UserError{
			Message: "Repository not found",
			Hint:    "Check the repository full name (owner/name) and that the token can see it.",
			Err:     err,
		}
	}

	return err
}
