// Package transform prepares raw assistant text for rendering. Fenced code
// blocks that declare a target filename on their first line are promoted
// to compact inline file-edit markers, and while text is still streaming a
// trailing unterminated fence is masked so a half-formed block is never
// shown. The transform is pure and recomputed from scratch on every call.
package transform

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// FileEdit is the decoded payload of a file-edit marker
type FileEdit struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

const (
	markerPrefix = "![file-edit](data:application/json;base64,"
	markerSuffix = ")"

	// LoadingMarker stands in for a fence still arriving over the wire
	LoadingMarker = "![file-loading]()"
)

// Render turns accumulated assistant text into renderable text. File-edit
// blocks become markers; when streaming is set, a final unterminated fence
// is replaced by LoadingMarker. Render is idempotent for non-streaming
// input: markers contain no fence, so a second pass is a no-op.
func Render(content string, streaming bool) string {
	out := extractFileEdits(content)
	if streaming {
		out = maskUnterminatedFence(out)
	}
	return out
}

// EncodeMarker encodes a file edit as an inline marker
func EncodeMarker(edit FileEdit) string {
	payload, _ := json.Marshal(edit)
	return markerPrefix + base64.StdEncoding.EncodeToString(payload) + markerSuffix
}

// DecodeMarker decodes an inline file-edit marker back to its payload
func DecodeMarker(marker string) (FileEdit, error) {
	if !IsMarker(marker) {
		return FileEdit{}, fmt.Errorf("not a file-edit marker: %q", marker)
	}
	encoded := strings.TrimSuffix(strings.TrimPrefix(marker, markerPrefix), markerSuffix)
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return FileEdit{}, fmt.Errorf("failed to decode file-edit marker: %w", err)
	}
	var edit FileEdit
	if err := json.Unmarshal(payload, &edit); err != nil {
		return FileEdit{}, fmt.Errorf("failed to parse file-edit payload: %w", err)
	}
	return edit, nil
}

// IsMarker reports whether the line is a complete file-edit marker
func IsMarker(line string) bool {
	return strings.HasPrefix(line, markerPrefix) && strings.HasSuffix(line, markerSuffix)
}

// isFenceOpen matches an opening fence carrying an info string (```js,
// ```python, ...). A bare ``` is a closing fence, never an opening one
// for a file block.
func isFenceOpen(line string) bool {
	if !strings.HasPrefix(line, "```") {
		return false
	}
	info := strings.TrimSpace(line[3:])
	if info == "" {
		return false
	}
	for _, r := range info {
		if !isWordChar(r) && r != '.' {
			return false
		}
	}
	return true
}

func isFenceClose(line string) bool {
	return strings.TrimSpace(line) == "```"
}

func isFenceLine(line string) bool {
	return strings.HasPrefix(line, "```")
}

func isWordChar(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// parseFilenameDecl recognizes the three supported filename declaration
// styles on the first line of a fenced block:
//
//	# path/to/file.py      (line comments: #, //)
//	/* path/to/file.c */   (block comments)
//	<!-- index.html -->    (markup comments)
//
// The declared name must be a single whitespace-free token.
func parseFilenameDecl(line string) (string, bool) {
	if name, ok := cutDelimited(line, "<!-- ", " -->"); ok {
		return name, true
	}
	if name, ok := cutDelimited(line, "/* ", " */"); ok {
		return name, true
	}

	// Line-comment style: one or more # or / characters, a space, the name.
	i := 0
	for i < len(line) && (line[i] == '#' || line[i] == '/') {
		i++
	}
	if i == 0 || i >= len(line) || line[i] != ' ' {
		return "", false
	}
	return validName(line[i+1:])
}

func cutDelimited(line, prefix, suffix string) (string, bool) {
	if !strings.HasPrefix(line, prefix) || !strings.HasSuffix(line, suffix) {
		return "", false
	}
	return validName(line[len(prefix) : len(line)-len(suffix)])
}

func validName(name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, " \t") {
		return "", false
	}
	return name, true
}

// extractFileEdits substitutes every complete filename-declaring fenced
// block with its marker, left to right in one pass. Generic fences are
// copied through whole so their bodies are never rescanned.
func extractFileEdits(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))

	i := 0
	for i < len(lines) {
		if !isFenceOpen(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}

		filename := ""
		ok := false
		if i+1 < len(lines) {
			filename, ok = parseFilenameDecl(lines[i+1])
		}

		bodyStart := i + 2
		if !ok {
			bodyStart = i + 1
		}
		closeAt := -1
		for j := bodyStart; j < len(lines); j++ {
			if isFenceClose(lines[j]) {
				closeAt = j
				break
			}
		}

		if closeAt < 0 {
			// Unterminated fence: left for the streaming mask to handle.
			out = append(out, lines[i:]...)
			break
		}

		if ok {
			body := strings.Join(lines[bodyStart:closeAt], "\n")
			if closeAt > bodyStart {
				body += "\n"
			}
			out = append(out, EncodeMarker(FileEdit{Filename: filename, Content: body}))
		} else {
			out = append(out, lines[i:closeAt+1]...)
		}
		i = closeAt + 1
	}

	return strings.Join(out, "\n")
}

// maskUnterminatedFence replaces a trailing unterminated fence, and
// everything after it, with LoadingMarker
func maskUnterminatedFence(content string) string {
	lines := strings.Split(content, "\n")

	inFence := false
	openOffset := 0
	offset := 0
	for _, line := range lines {
		if isFenceLine(line) {
			if !inFence {
				inFence = true
				openOffset = offset
			} else {
				inFence = false
			}
		}
		offset += len(line) + 1
	}

	if !inFence {
		return content
	}
	return content[:openOffset] + LoadingMarker
}
