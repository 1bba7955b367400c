package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zulfikawr/courier/pkg/download"
	"github.com/zulfikawr/courier/pkg/transport"
)

// UserError represents an error with user-friendly message and suggestions
type UserError struct {
	Message     string   // User-friendly error message
	Suggestions []string // Possible solutions
	Err         error    // Underlying error (can be nil)
}

// Error implements the error interface
func (e *UserError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if len(e.Suggestions) > 0 {
		sb.WriteString("\n\nPossible solutions:")
		for _, suggestion := range e.Suggestions {
			sb.WriteString("\n  • ")
			sb.WriteString(suggestion)
		}
	}

	if e.Err != nil {
		sb.WriteString("\n\nTechnical details: ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying error
func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error
func NewUserError(message string, suggestions []string, err error) *UserError {
	return &UserError{
		Message:     message,
		Suggestions: suggestions,
		Err:         err,
	}
}

// IsUserError checks if an error is a UserError
func IsUserError(err error) bool {
	var userErr *UserError
	return errors.As(err, &userErr)
}

// FromDownload translates a session failure into a message for the terminal.
// Errors that are not session errors are returned unchanged.
func FromDownload(url string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, transport.ErrTimeout):
		return NewUserError(
			fmt.Sprintf("Timed out waiting for %s", url),
			[]string{
				"Increase the timeout with --timeout",
				"Check that the server is reachable",
			},
			err,
		)
	case errors.Is(err, download.ErrInvalidURL):
		return InvalidURLError(url, err)
	case errors.Is(err, download.ErrTransport):
		return ConnectionError(url, err)
	case errors.Is(err, download.ErrDecode):
		return NewUserError(
			"Response body is not valid JSON",
			[]string{
				"Drop --json to save the raw response",
				"Check the Content-Type the server returns",
			},
			err,
		)
	case errors.Is(err, download.ErrFileSystem):
		return PermissionError("write", url, err)
	case errors.Is(err, download.ErrBackgroundExpired):
		return NewUserError("Download was stopped before it finished", nil, err)
	}
	return err
}

// ConnectionError creates an error for connection failures
func ConnectionError(url string, err error) error {
	return NewUserError(
		fmt.Sprintf("Failed to connect to %s", url),
		[]string{
			"Check if the server is running",
			"Verify the URL is correct",
			"Check proxy and firewall settings",
		},
		err,
	)
}

// FileExistsError creates an error for existing files
func FileExistsError(path string) error {
	return NewUserError(
		fmt.Sprintf("File already exists: %s", path),
		[]string{
			"Use --force flag to overwrite",
			"Specify a different output path with --output",
		},
		nil,
	)
}

// PermissionError creates an error for permission issues
func PermissionError(operation, path string, err error) error {
	return NewUserError(
		fmt.Sprintf("Permission denied: cannot %s %s", operation, path),
		[]string{
			"Check file/directory permissions",
			"Ensure the directory is writable",
		},
		err,
	)
}

// InvalidURLError creates an error for malformed URLs
func InvalidURLError(url string, err error) error {
	return NewUserError(
		fmt.Sprintf("Invalid URL: %s", url),
		[]string{
			"Use an absolute URL including the scheme (https://...)",
			"Quote the URL if it contains & or ?",
		},
		err,
	)
}

// ConfigError creates an error for configuration issues
func ConfigError(message string, err error) error {
	return NewUserError(
		message,
		[]string{
			"Check your config file at ~/.config/courier/courier.yaml",
			"Verify the YAML syntax is correct",
			"Try running 'courier config show' to see current settings",
			"Delete the config file to reset to defaults",
		},
		err,
	)
}
