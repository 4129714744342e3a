package sessions

import (
	"context"
	"strings"

	"github.com/Desarso/chatstream/models"
)

const titleSystemPrompt = "You generate a short title from the first message a user begins a conversation with. " +
	"The title must be a summary of the message, at most 80 characters, without quotes or colons."

const titleMaxLen = 80

// GenerateTitle derives a chat title from the user's first message with a
// one-shot model call. Falls back to the truncated message text if the call
// fails.
func GenerateTitle(ctx context.Context, model models.Model, userText string) string {
	request := models.UserText(userText)
	request.System = titleSystemPrompt

	response, err := model.Model_Request(ctx, request, nil, nil)
	title := ""
	if err == nil {
		for _, part := range response.Parts {
			if part.Text != nil {
				title += *part.Text
			}
		}
	}
	if strings.TrimSpace(title) == "" {
		title = userText
	}
	return CleanTitle(title)
}

// CleanTitle enforces the title constraints: single line, no quotes or
// colons, at most 80 characters.
func CleanTitle(title string) string {
	title = strings.ReplaceAll(title, "\n", " ")
	title = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', ':', '`':
			return -1
		}
		return r
	}, title)
	title = strings.TrimSpace(title)

	runes := []rune(title)
	if len(runes) > titleMaxLen {
		title = strings.TrimSpace(string(runes[:titleMaxLen]))
	}
	return title
}
