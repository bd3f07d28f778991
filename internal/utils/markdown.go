package utils

import (
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/specmint/specmint-cli/internal/styles"
)

var (
	cachedRenderer *glamour.TermRenderer
	rendererOnce   sync.Once
)

// getRenderer returns a cached glamour renderer, creating it on first call.
func getRenderer() (*glamour.TermRenderer, error) {
	var initErr error
	rendererOnce.Do(func() {
		baseStyle := "dark"
		if !styles.HasDarkBackground {
			baseStyle = "light"
		}

		cachedRenderer, initErr = glamour.NewTermRenderer(
			glamour.WithStandardStyle(baseStyle),
			glamour.WithWordWrap(90),
		)
	})
	return cachedRenderer, initErr
}

// RenderMarkdown renders markdown for terminal display, falling back to the
// raw text when color is disabled or stdout is not a terminal.
func RenderMarkdown(markdown string) string {
	if styles.NoColor() || !IsTerminal() {
		return markdown
	}

	renderer, err := getRenderer()
	if err != nil {
		return markdown
	}

	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}

	return rendered
}
