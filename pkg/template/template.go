// Package template renders tenant-authored subject and body strings against the
// execution context.
package template

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"
)

// MatchMarker is the token a rendered legacy condition template must contain to match.
const MatchMarker = "do_work"

const noValue = "<no value>"

var funcs = template.FuncMap{
	"now": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"default": func(fallback, value any) any {
		if value == nil {
			return fallback
		}

		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			return fallback
		}

		return value
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"trim":  strings.TrimSpace,
}

// NeedsTemplating reports whether text contains template actions at all.
func NeedsTemplating(text string) bool {
	return strings.Contains(text, "{{")
}

// Render executes text as a text/template against data. Missing keys render empty.
func Render(text string, data any) (string, error) {
	if !NeedsTemplating(text) {
		return text, nil
	}

	tmpl, err := template.New("automation").Funcs(funcs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder

	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return strings.ReplaceAll(buf.String(), noValue, ""), nil
}

// RenderOrOriginal renders text and falls back to the unrendered text on any error.
func RenderOrOriginal(ctx context.Context, logger *slog.Logger, text string, data any) string {
	rendered, err := Render(text, data)
	if err != nil {
		logger.WarnContext(ctx, "template rendering failed, using original text", "error", err)

		return text
	}

	return rendered
}

// Matches renders a legacy condition template and reports whether it signals a match.
// Render failures never match.
func Matches(ctx context.Context, logger *slog.Logger, text string, data any) bool {
	rendered, err := Render(text, data)
	if err != nil {
		logger.WarnContext(ctx, "condition template rendering failed", "error", err)

		return false
	}

	return strings.Contains(rendered, MatchMarker)
}
