package agent

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/hupe1980/meshstream/core"
)

// TemplateData is the value instruction templates are executed against.
type TemplateData struct {
	// Request is the content of the latest user message.
	Request string
	// Messages is the number of messages in the conversation so far.
	Messages int
	// ToolResults is the number of operation results so far.
	ToolResults int
}

func templateDataOf(history []core.Message) TemplateData {
	var d TemplateData
	d.Messages = len(history)
	for _, m := range history {
		switch {
		case m.Role == core.RoleUser:
			d.Request = m.Content
		case m.IsToolResult():
			d.ToolResults++
		}
	}
	return d
}

var templateFuncs = template.FuncMap{
	"default": func(defaultVal any, val any) any {
		if val == nil || val == "" {
			return defaultVal
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"title": func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
	},
	"join": func(sep string, items []any) string {
		strItems := make([]string, len(items))
		for i, item := range items {
			strItems[i] = fmt.Sprintf("%v", item)
		}
		return strings.Join(strItems, sep)
	},
}

// NewInstructionFromTemplate parses text as a text/template executed against
// TemplateData on every step. Text without template markers is static.
func NewInstructionFromTemplate(text string) (Instruction, error) {
	if !strings.Contains(text, "{{") {
		return NewInstructionFromText(text), nil
	}

	tmpl, err := template.New("instruction").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return Instruction{}, &core.ConfigurationError{Component: "agent", Name: "instruction", Reason: "invalid template", Err: err}
	}

	return NewInstructionFromFunc(func(history []core.Message) (string, error) {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, templateDataOf(history)); err != nil {
			return "", err
		}
		return buf.String(), nil
	}), nil
}
