package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"inboxiq/core/agent/llm"
	"inboxiq/pkg/logger"
)

const (
	defaultInstruction = "Make it clearer and more concise while keeping the meaning."
	noChangesNote      = "No changes made"
)

const improveSystemPrompt = `You edit emails. Apply the user's instruction to the email.
Respond ONLY with a JSON object:
{"subject": "...", "body": "...", "changes_made": ["short description", ...]}.
Never add email addresses.`

// Improvement is an edited subject and body with a list of what changed.
type Improvement struct {
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	ChangesMade []string `json:"changes_made"`
	Improved    bool     `json:"improved"`
}

// Improve rewrites content through the model. Without a model, or when the
// model fails, the input comes back unchanged with a note saying so.
func (g *Generator) Improve(ctx context.Context, subject, body, instruction string) Improvement {
	unchanged := Improvement{Subject: subject, Body: body, ChangesMade: []string{noChangesNote}}
	if g.text == nil || g.cfg.UseFallback || strings.TrimSpace(body) == "" {
		return unchanged
	}
	if strings.TrimSpace(instruction) == "" {
		instruction = defaultInstruction
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	prompt := fmt.Sprintf("Instruction: %s\n\nSubject: %s\n\nBody:\n%s", instruction, subject, llm.Truncate(body, 4000))
	raw, err := g.text.Generate(callCtx, improveSystemPrompt, prompt)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("improve failed")
		return unchanged
	}

	var res Improvement
	if err := json.Unmarshal([]byte(llm.CleanJSONResponse(raw)), &res); err != nil {
		s, b, perr := ParseContent(raw)
		if perr != nil {
			logger.WithContext(ctx).WithError(perr).Warn("improve output unparseable")
			return unchanged
		}
		res = Improvement{Subject: s, Body: b}
	}

	res.Body = SanitizeBody(res.Body)
	if res.Body == "" {
		return unchanged
	}
	if res.Subject = SanitizeSubject(res.Subject); res.Subject == "" {
		res.Subject = subject
	}
	if len(res.ChangesMade) == 0 {
		res.ChangesMade = []string{"Applied: " + instruction}
	}
	res.Improved = true
	return res
}
