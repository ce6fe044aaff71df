// Package git parses the git-log side channel the service attaches to
// status frames.
package git

import "strings"

// Entry is one commit line from the sandbox git log
type Entry struct {
	Hash    string
	Message string
	Author  string
	Email   string
	Date    string
}

// ParseLog parses the service's pipe-separated log format, one commit per
// line: hash|message|author|email|date. Lines with the wrong field count
// are skipped.
func ParseLog(content string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(content, "\n") {
		if strings.Count(line, "|") != 4 {
			continue
		}
		parts := strings.SplitN(line, "|", 5)
		entries = append(entries, Entry{
			Hash:    parts[0],
			Message: parts[1],
			Author:  parts[2],
			Email:   parts[3],
			Date:    parts[4],
		})
	}
	return entries
}
