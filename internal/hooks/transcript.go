package hooks

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
)

// transcript lines we care about look like:
//
//	{"type":"assistant","message":{"content":[{"type":"text","text":"..."}]}}
//
// Everything else (tool calls, user turns, metadata) is skipped.
type transcriptLine struct {
	Type    string `json:"type"`
	Message struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

// maxTranscriptLine bounds the scanner buffer; transcript entries carrying
// large tool results routinely exceed bufio's default.
const maxTranscriptLine = 4 * 1024 * 1024

// AssistantTail returns the text of the last maxTurns assistant turns in a
// host transcript. Missing or unreadable transcripts yield an empty string:
// loop completion detection degrades to iteration ceilings rather than
// failing the hook.
func AssistantTail(path string, maxTurns int) string {
	if path == "" || maxTurns <= 0 {
		return ""
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	var turns []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxTranscriptLine)
	for sc.Scan() {
		var line transcriptLine
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			continue
		}
		if line.Type != "assistant" {
			continue
		}
		var parts []string
		for _, c := range line.Message.Content {
			if c.Type == "text" && c.Text != "" {
				parts = append(parts, c.Text)
			}
		}
		if len(parts) == 0 {
			continue
		}
		turns = append(turns, strings.Join(parts, "\n"))
		if len(turns) > maxTurns {
			turns = turns[1:]
		}
	}
	return strings.Join(turns, "\n")
}
