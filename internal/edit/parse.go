package edit

import (
	"encoding/json"
	"strings"
)

// envelope covers both reply shapes the model may produce: the multi-edit
// shape {"edits": [...]} and the legacy flat shape {"old_code", "new_code"}.
type envelope struct {
	Edits   []Edit `json:"edits"`
	OldCode string `json:"old_code"`
	NewCode string `json:"new_code"`
}

// ParseReply decodes a model reply into a list of edits. Markdown code fences
// are stripped before decoding. The multi-edit shape is tried first; a flat
// old_code/new_code pair is accepted as one implicit edit against defaultFile.
// Any structural failure is a recoverable *Error, never a panic or a fatal.
func ParseReply(reply, defaultFile string) ([]Edit, error) {
	content := stripFences(strings.TrimSpace(reply))

	var env envelope
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return nil, &Error{
			Kind:    ResponseInvalid,
			Message: "reply is not valid JSON: " + err.Error(),
		}
	}

	edits := env.Edits
	if len(edits) == 0 && env.OldCode != "" {
		edits = []Edit{{File: defaultFile, OldCode: env.OldCode, NewCode: env.NewCode}}
	}
	if len(edits) == 0 {
		return nil, &Error{Kind: ResponseInvalid, Message: "no edits found in reply"}
	}

	for i := range edits {
		if edits[i].File == "" {
			edits[i].File = defaultFile
		}
		if edits[i].OldCode == "" || edits[i].NewCode == "" {
			return nil, &Error{
				Kind:    ResponseInvalid,
				Path:    edits[i].File,
				Message: "edit is missing old_code or new_code",
			}
		}
	}

	return edits, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, leaving the inner text intact.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= 2 {
		return s
	}
	end := len(lines)
	if strings.HasPrefix(strings.TrimSpace(lines[end-1]), "```") {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}
