package templating

import (
	"strings"

	"go-skin-renderer/internal/model"
	"go-skin-renderer/internal/skin"

	"github.com/google/uuid"
)

const placeholderPrefix = "TEMPLOBJECT:"

// RenderContext is the state of the page currently being rendered.
type RenderContext struct {
	Stack        *skin.Stack
	BasePath     string // core skin directory of the current template
	TemplateName string

	rendering    bool
	placeholders []model.Placeholder
}

func newRenderContext(paths []string) *RenderContext {
	ctx := &RenderContext{Stack: skin.NewStack(paths)}
	ctx.BasePath = ctx.Stack.Base()
	return ctx
}

// Rendering reports whether a top-level render is in progress.
func (c *RenderContext) Rendering() bool { return c.rendering }

// addPlaceholder stores content under a fresh token and returns the token.
func (c *RenderContext) addPlaceholder(content string) string {
	token := placeholderPrefix + uuid.NewString()
	c.placeholders = append(c.placeholders, model.Placeholder{Token: token, Content: content})
	return token
}

// substitute puts placeholder contents back into output. Placeholders
// found are dropped; the others stay queued for a later pass.
func (c *RenderContext) substitute(output string) string {
	pending := c.placeholders[:0]
	for _, p := range c.placeholders {
		if strings.Contains(output, p.Token) {
			output = strings.ReplaceAll(output, p.Token, p.Content)
			continue
		}
		pending = append(pending, p)
	}
	c.placeholders = pending
	return output
}

// Pending returns the number of placeholders not yet substituted.
func (c *RenderContext) Pending() int { return len(c.placeholders) }
