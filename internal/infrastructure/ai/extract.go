package ai

import (
	"fmt"
	"strconv"
	"strings"
)

// extractJSONPath reads a string from nested JSON using a small path syntax:
// "field", "field.nested", "field[0]", "field[0].nested.field".
func extractJSONPath(data map[string]interface{}, path string) (string, error) {
	var current interface{} = data

	for _, part := range parseJSONPath(path) {
		switch part.kind {
		case "field":
			obj, ok := current.(map[string]interface{})
			if !ok {
				return "", fmt.Errorf("expected object at '%s'", part.value)
			}
			var found bool
			current, found = obj[part.value]
			if !found {
				return "", fmt.Errorf("field '%s' not found", part.value)
			}

		case "index":
			arr, ok := current.([]interface{})
			if !ok {
				return "", fmt.Errorf("expected array at index %s", part.value)
			}
			idx, err := strconv.Atoi(part.value)
			if err != nil {
				return "", fmt.Errorf("invalid index %q", part.value)
			}
			if idx < 0 || idx >= len(arr) {
				return "", fmt.Errorf("index %d out of bounds (len=%d)", idx, len(arr))
			}
			current = arr[idx]
		}
	}

	if str, ok := current.(string); ok {
		return str, nil
	}
	return "", fmt.Errorf("final value is not a string: %T", current)
}

type pathPart struct {
	kind  string // "field" or "index"
	value string
}

// parseJSONPath converts "content[0].text" into
// [{field content} {index 0} {field text}].
func parseJSONPath(path string) []pathPart {
	var parts []pathPart
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, pathPart{kind: "field", value: current.String()})
			current.Reset()
		}
	}

	for i := 0; i < len(path); i++ {
		switch ch := path[i]; ch {
		case '.':
			flush()
		case '[':
			flush()
			j := i + 1
			for j < len(path) && path[j] != ']' {
				j++
			}
			if j < len(path) {
				parts = append(parts, pathPart{kind: "index", value: path[i+1 : j]})
				i = j
			}
		default:
			current.WriteByte(ch)
		}
	}
	flush()
	return parts
}

// extractCommand pulls a shell command out of a model reply: the first
// fenced code block, else a "command:" line, else the reply with inline
// backticks removed.
func extractCommand(content string) string {
	if code := extractCodeBlock(content); code != "" {
		return code
	}
	if cmd := extractCommandLine(content); cmd != "" {
		return cmd
	}
	return strings.Trim(strings.TrimSpace(content), "`")
}

var fenceLanguages = []string{"bash", "shell", "sh", "zsh", "powershell", "pwsh", "cmd", "console"}

func extractCodeBlock(content string) string {
	start := strings.Index(content, "```")
	if start == -1 {
		return ""
	}
	suffix := content[start+3:]
	end := strings.Index(suffix, "```")
	if end == -1 {
		return ""
	}

	lines := strings.Split(suffix[:end], "\n")
	if len(lines) > 1 {
		marker := strings.ToLower(strings.TrimSpace(lines[0]))
		if marker == "" {
			lines = lines[1:]
		} else {
			for _, lang := range fenceLanguages {
				if marker == lang {
					lines = lines[1:]
					break
				}
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractCommandLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(line), "command:") {
			return strings.Trim(strings.TrimSpace(line[len("command:"):]), "`")
		}
	}
	return ""
}
