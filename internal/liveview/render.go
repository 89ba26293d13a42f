package liveview

import (
	"html/template"
	"strings"

	"github.com/flisboa999/guiaturismo/internal/model"
)

const (
	defaultSender = "User"
	replyLabel    = "Gemini"
)

var turnTemplate = template.Must(template.New("turn").Parse(
	`<div class="message" id="{{.ElementID}}">` +
		`<strong>{{.Sender}}:</strong> <span class="prompt">{{.Prompt}}</span>` +
		`{{if .HasResponse}}<br><strong>{{.ReplyLabel}}:</strong> <span class="response">{{.Response}}</span>{{end}}` +
		`</div>`))

var promptTemplate = template.Must(template.New("prompt").Parse(`{{.}}`))

type turnData struct {
	ElementID   string
	Sender      string
	Prompt      string
	HasResponse bool
	ReplyLabel  string
	Response    string
}

// ElementID is the DOM id of a turn's element.
func ElementID(turnID string) string {
	return "turn-" + turnID
}

func senderOf(turn model.ChatTurn) string {
	if turn.UserName != nil && strings.TrimSpace(*turn.UserName) != "" {
		return *turn.UserName
	}
	return defaultSender
}

// RenderTurn renders one chat turn as escaped markup.
func RenderTurn(turn model.ChatTurn) (string, error) {
	data := turnData{
		ElementID:  ElementID(turn.ID),
		Sender:     senderOf(turn),
		Prompt:     turn.Prompt,
		ReplyLabel: replyLabel,
	}
	if turn.HasResponse() {
		data.HasResponse = true
		data.Response = *turn.Response
	}
	var b strings.Builder
	if err := turnTemplate.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderPrompt renders only the prompt region's content.
func RenderPrompt(prompt string) (string, error) {
	var b strings.Builder
	if err := promptTemplate.Execute(&b, prompt); err != nil {
		return "", err
	}
	return b.String(), nil
}
