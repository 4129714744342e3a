// Package artifacts drives model streams that materialize document content
// incrementally, relaying deltas onto a session data stream.
package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Desarso/chatstream/models"
	"github.com/Desarso/chatstream/sessions"
)

// Request describes one content streaming run.
type Request struct {
	Model      models.Model
	Kind       string // "text" or "code"
	DocumentID string
	Title      string
	PriorTitle string // previous title when updating, empty when creating
	System     string
	Prompt     string
}

// StreamContent produces the full content string incrementally. Before
// streaming it primes the client with the content id, title, kind and a clear
// signal; after streaming a finish event is emitted unconditionally, even if
// the accumulator is empty.
//
// For text kind every fragment is forwarded as a text-delta and appended to
// the accumulator. For code kind the model is driven through a structured
// object stream constrained to a single `code` field; whenever that field
// changes the new full value (not a diff) is forwarded as a code-delta and
// replaces the accumulator.
func StreamContent(ctx context.Context, req Request, stream *sessions.DataStream) (content string, err error) {
	primer := []struct {
		event   string
		payload string
	}{
		{sessions.EventID, req.DocumentID},
		{sessions.EventTitle, req.Title},
		{sessions.EventKind, req.Kind},
		{sessions.EventClear, req.PriorTitle},
	}
	for _, p := range primer {
		if err := stream.Write(p.event, p.payload); err != nil {
			return "", err
		}
	}

	defer func() {
		if writeErr := stream.Write(sessions.EventFinish, ""); writeErr != nil && err == nil {
			err = writeErr
		}
	}()

	request := models.UserText(req.Prompt)
	request.System = req.System
	if req.Kind == "code" {
		request.System = req.System + "\n\nRespond with a single JSON object of the form {\"code\": \"...\"} and nothing else."
	}

	respChan, errChan := req.Model.Stream_Model_Request(ctx, request, nil, nil)

	accumulator := ""
	rawObject := ""

	for {
		select {
		case response, ok := <-respChan:
			if !ok {
				respChan = nil
				break
			}
			for _, part := range response.Parts {
				if part.Text == nil || *part.Text == "" {
					continue
				}
				switch req.Kind {
				case "code":
					rawObject += *part.Text
					if code, ok := extractCodeField(rawObject); ok && code != accumulator {
						accumulator = code
						if err := stream.Write(sessions.EventCodeDelta, code); err != nil {
							return accumulator, err
						}
					}
				default:
					accumulator += *part.Text
					if err := stream.Write(sessions.EventTextDelta, *part.Text); err != nil {
						return accumulator, err
					}
				}
			}

		case streamErr, ok := <-errChan:
			if ok && streamErr != nil {
				return accumulator, fmt.Errorf("content stream failed: %w", streamErr)
			}
			if !ok {
				errChan = nil
			}

		case <-ctx.Done():
			return accumulator, ctx.Err()
		}

		if respChan == nil && errChan == nil {
			return accumulator, nil
		}
	}
}

// extractCodeField pulls the current value of the `code` field out of a
// possibly incomplete JSON object. Complete objects are decoded directly;
// otherwise the partial string value is recovered by scanning up to the
// unterminated end.
func extractCodeField(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var complete struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal([]byte(trimmed), &complete); err == nil {
		return complete.Code, true
	}

	idx := strings.Index(trimmed, `"code"`)
	if idx == -1 {
		return "", false
	}
	rest := trimmed[idx+len(`"code"`):]
	colon := strings.Index(rest, ":")
	if colon == -1 {
		return "", false
	}
	rest = strings.TrimLeft(rest[colon+1:], " \t\r\n")
	if !strings.HasPrefix(rest, `"`) {
		return "", false
	}

	// Scan the string value, honoring escapes, up to the closing quote or
	// the unterminated end of the fragment.
	body := rest[1:]
	end := len(body)
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' {
			i++
			continue
		}
		if body[i] == '"' {
			end = i
			break
		}
	}
	fragment := body[:end]
	// A trailing lone backslash is half an escape sequence; drop it.
	if strings.HasSuffix(fragment, `\`) && !strings.HasSuffix(fragment, `\\`) {
		fragment = fragment[:len(fragment)-1]
	}

	var value string
	if err := json.Unmarshal([]byte(`"`+fragment+`"`), &value); err != nil {
		return "", false
	}
	return value, true
}
