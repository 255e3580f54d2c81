package main

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be displayed to the user with helpful context
type UserError struct {
	Message    string
	Cause      error
	Suggestion string
}

func (e *UserError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// FormatUserError formats an error for user display with colors and suggestions
func FormatUserError(err error) string {
	var sb strings.Builder

	var userErr *UserError
	if errors.As(err, &userErr) {
		sb.WriteString(fmt.Sprintf("\033[91mError:\033[0m %s\n", userErr.Message))
		if userErr.Cause != nil {
			sb.WriteString(fmt.Sprintf("       Cause: %v\n", userErr.Cause))
		}
		suggestion := userErr.Suggestion
		if suggestion == "" && userErr.Cause != nil {
			suggestion = getSuggestionForError(userErr.Cause.Error())
		}
		if suggestion != "" {
			sb.WriteString(fmt.Sprintf("\n\033[93mSuggestion:\033[0m %s\n", suggestion))
		}
	} else {
		errStr := err.Error()
		sb.WriteString(fmt.Sprintf("\033[91mError:\033[0m %s\n", errStr))

		suggestion := getSuggestionForError(errStr)
		if suggestion != "" {
			sb.WriteString(fmt.Sprintf("\n\033[93mSuggestion:\033[0m %s\n", suggestion))
		}
	}

	return sb.String()
}

// getSuggestionForError returns a helpful suggestion based on error content
func getSuggestionForError(errStr string) string {
	errLower := strings.ToLower(errStr)

	// Local model server
	if strings.Contains(errLower, "connection refused") && strings.Contains(errLower, "11434") {
		return "The Ollama server does not appear to be running. Start it with 'ollama serve' or set OLLAMA_HOST."
	}

	if strings.Contains(errLower, "model") && strings.Contains(errLower, "not found") {
		return "The model is not available locally. Pull it first, e.g. 'ollama pull llama3.2', or pick another model in ~/.namecritic/settings.json."
	}

	if strings.Contains(errLower, "api key") {
		return "Set NAMECRITIC_API_KEY (or add it to a .env file next to where you run namecritic)."
	}

	// Search API
	if strings.Contains(errLower, "quotaexceeded") || strings.Contains(errLower, "billingnotenabled") ||
		strings.Contains(errLower, "quota") {
		return "The Custom Search quota is exhausted. Wait for the daily reset or run with --no-web-check."
	}

	// AWS/Bedrock related errors
	if strings.Contains(errLower, "no valid credential") ||
		strings.Contains(errLower, "unable to sign request") ||
		strings.Contains(errLower, "security token") {
		return "Check your AWS credentials. Run 'aws configure' or set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables."
	}

	if strings.Contains(errLower, "region") {
		return "Set the AWS_REGION environment variable (e.g., 'export AWS_REGION=us-east-1')."
	}

	if strings.Contains(errLower, "access denied") ||
		strings.Contains(errLower, "not authorized") {
		return "Your credentials may not have permission to call this model. Check the provider's IAM or key scopes."
	}

	if strings.Contains(errLower, "throttl") || strings.Contains(errLower, "rate limit") {
		return "You're being rate-limited. Wait a moment and try again, or lower --parallel."
	}

	if strings.Contains(errLower, "timeout") || strings.Contains(errLower, "deadline exceeded") {
		return "The model took too long to answer. Larger local models can be slow; try a smaller model or raise NAMECRITIC_TIMEOUT."
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "network") {
		return "Check your network connection. You may be offline or behind a firewall."
	}

	return ""
}

// Common error constructors

// ErrNoTheme is returned when the user gives an empty theme
func ErrNoTheme() *UserError {
	return &UserError{
		Message:    "No theme provided",
		Suggestion: "Pass --theme \"eco-friendly coffee shop\" or type a theme at the prompt.",
	}
}

// ErrNoNames is returned when the generator produced nothing usable
func ErrNoNames(theme string, cause error) *UserError {
	return &UserError{
		Message:    fmt.Sprintf("No names were generated for %q", theme),
		Cause:      cause,
		Suggestion: "Try a different theme, raise the craziness level, or check that the generator model is pulled and the model server is reachable.",
	}
}

// ErrCrazinessRange is returned for an out-of-range craziness flag
func ErrCrazinessRange(level int) *UserError {
	return &UserError{
		Message:    fmt.Sprintf("Craziness level %d is out of range", level),
		Suggestion: "Use a number between 1 (tame) and 100 (wild).",
	}
}

// ErrUnknownProfile is returned for an unknown --profile value
func ErrUnknownProfile(name string) *UserError {
	return &UserError{
		Message:    fmt.Sprintf("Unknown profile: %s", name),
		Suggestion: "Available profiles: " + strings.Join(ProfileNames(), ", "),
	}
}

// ErrAWSConfig creates an error for AWS configuration issues
func ErrAWSConfig(cause error) *UserError {
	return &UserError{
		Message: "Failed to initialize AWS configuration",
		Cause:   cause,
		Suggestion: `Check your AWS credentials:
       1. Run 'aws configure' to set up credentials
       2. Or set environment variables:
          export AWS_ACCESS_KEY_ID=your_key
          export AWS_SECRET_ACCESS_KEY=your_secret
          export AWS_REGION=us-east-1`,
	}
}

// ErrBedrockInvoke creates an error for Bedrock API issues
func ErrBedrockInvoke(cause error) *UserError {
	return &UserError{
		Message: "Failed to call Bedrock API",
		Cause:   cause,
		Suggestion: `Possible issues:
       1. Check AWS credentials and region
       2. Verify Bedrock access is enabled in your AWS account
       3. Check IAM permissions for bedrock:InvokeModel`,
	}
}

// ErrModelServer creates an error for an unreachable model server
func ErrModelServer(host string, cause error) *UserError {
	return &UserError{
		Message: fmt.Sprintf("Cannot reach model server at %s", host),
		Cause:   cause,
		Suggestion: `Possible fixes:
       1. Start Ollama: ollama serve
       2. Point OLLAMA_HOST at the right address
       3. Or switch provider: --provider openai|anthropic|gemini|bedrock`,
	}
}

// ErrUnsafeTheme is returned when the prompt scanner rejects the theme
func ErrUnsafeTheme(details string) *UserError {
	return &UserError{
		Message:    "The theme was rejected by the prompt scanner",
		Suggestion: details,
	}
}
