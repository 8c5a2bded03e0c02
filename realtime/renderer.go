package realtime

import (
	"bytes"
	"html/template"
	"log"
)

// FragmentRenderer turns a message view into a display fragment shipped
// alongside the structured event. Rendering is a secondary concern: any
// failure is recovered and the event goes out with an empty fragment.
type FragmentRenderer interface {
	RenderMessage(view MessageView) (string, error)
}

const messageFragmentTemplate = `<div class="message" data-message-id="{{.ID}}" data-sender-id="{{.SenderID}}">
  <span class="message-sender">{{.SenderName}}</span>
  <p class="message-content">{{.Content}}</p>
  <time class="message-time">{{.CreatedAt}}</time>
</div>`

// TemplateRenderer renders message fragments from an embedded html/template.
type TemplateRenderer struct {
	tmpl *template.Template
}

func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{
		tmpl: template.Must(template.New("message_fragment").Parse(messageFragmentTemplate)),
	}
}

var _ FragmentRenderer = (*TemplateRenderer)(nil)

func (r *TemplateRenderer) RenderMessage(view MessageView) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderFragment is the recovered-error boundary around fragment rendering:
// errors and panics yield an empty fragment and never block event delivery.
func RenderFragment(r FragmentRenderer, view MessageView) (html string) {
	if r == nil {
		return ""
	}
	defer func() {
		if p := recover(); p != nil {
			log.Printf("message fragment renderer panicked for message %s: %v", view.ID, p)
			html = ""
		}
	}()

	html, err := r.RenderMessage(view)
	if err != nil {
		log.Printf("message fragment render failed for message %s: %v", view.ID, err)
		return ""
	}
	return html
}
