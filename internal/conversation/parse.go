package conversation

import (
	"bufio"
	"fmt"
	"strings"
)

const Delimiter = "|||"

type Turn struct {
	ParticipantID string `json:"participantId"`
	Text          string `json:"text"`
}

// ParseError points at the first malformed line (1-based).
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("conversation line %d: %s", e.Line, e.Reason)
}

// Parse reads participantId|||messageText lines. Blank lines are skipped;
// a line with no delimiter, an empty participant or an empty message fails
// the whole parse.
func Parse(raw string) ([]Turn, error) {
	var turns []Turn
	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		who, text, ok := strings.Cut(line, Delimiter)
		if !ok {
			return nil, &ParseError{Line: n, Reason: "missing " + Delimiter + " delimiter"}
		}
		who = strings.TrimSpace(who)
		text = strings.TrimSpace(text)
		if who == "" {
			return nil, &ParseError{Line: n, Reason: "empty participant id"}
		}
		if text == "" {
			return nil, &ParseError{Line: n, Reason: "empty message text"}
		}
		turns = append(turns, Turn{ParticipantID: who, Text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return turns, nil
}
