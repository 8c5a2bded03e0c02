package realtime

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingRenderer struct{ err error }

func (f failingRenderer) RenderMessage(MessageView) (string, error) { return "", f.err }

type panickingRenderer struct{}

func (panickingRenderer) RenderMessage(MessageView) (string, error) { panic("template blew up") }

func TestTemplateRendererEscapesContent(t *testing.T) {
	renderer := NewTemplateRenderer()
	view := MessageView{
		ID:         "m1",
		SenderID:   "u1",
		SenderName: "Alice",
		Content:    `<script>alert("hi")</script>`,
		CreatedAt:  "Mar 07, 2026 2:05 PM",
	}

	html := RenderFragment(renderer, view)
	assert.True(t, strings.Contains(html, `data-message-id="m1"`))
	assert.False(t, strings.Contains(html, "<script>"))
	assert.True(t, strings.Contains(html, "Alice"))
}

func TestRenderFragmentSwallowsFailures(t *testing.T) {
	view := MessageView{ID: "m1", Content: "hello"}

	assert.Equal(t, "", RenderFragment(nil, view))
	assert.Equal(t, "", RenderFragment(failingRenderer{err: errors.New("boom")}, view))
	assert.Equal(t, "", RenderFragment(panickingRenderer{}, view))
}
