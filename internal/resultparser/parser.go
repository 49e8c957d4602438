// Package resultparser frames a sandbox's raw combined stdout+stderr byte
// stream into lines and decodes the harness's embedded JSON result events.
//
// The harness writes one JSON object per line to stdout; the container
// runtime's log plumbing may prepend small framing artifacts and scatter
// control characters through the stream, so the parser tolerates both
// before attempting to decode each line.
package resultparser

import (
	"bytes"
	"encoding/json"
	"strings"

	"execagent/internal/logging"

	"go.uber.org/zap"
)

// CaseResult is one test case's outcome, as reported by the harness.
type CaseResult struct {
	ID       int             `json:"id"`
	Status   string          `json:"status"`
	Input    json.RawMessage `json:"input"`
	Expected json.RawMessage `json:"expected"`
	Actual   json.RawMessage `json:"actual,omitempty"`
	TimeMs   float64         `json:"time"`
	Reason   string          `json:"reason,omitempty"`
	Error    *CaseError      `json:"error,omitempty"`
}

// CaseError describes a runtime error encountered while executing a case.
type CaseError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Trace   string `json:"trace,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// Summary is the harness's final, authoritative report for the whole job.
type Summary struct {
	Total         int          `json:"total"`
	Passed        int          `json:"passed"`
	Failed        int          `json:"failed"`
	ExecutionTime float64      `json:"execution_time"`
	Cases         []CaseResult `json:"cases"`
}

type resultEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	eventTestResult  = "test_result"
	eventFinalResult = "final_result"
)

// Parser accumulates bytes across chunks and decodes ResultEvents from
// complete lines. It is not safe for concurrent use.
type Parser struct {
	buf          bytes.Buffer
	final        *Summary
	testsObserved int
}

// New returns an empty Parser.
func New() *Parser {
	return &Parser{}
}

// Feed processes one chunk of raw sandbox output. It may be called any
// number of times as the stream arrives.
func (p *Parser) Feed(chunk []byte) {
	p.buf.Write(stripControlChars(chunk))

	data := p.buf.Bytes()
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := data[:idx]
		data = data[idx+1:]
		p.handleLine(line)
	}

	// Retain the trailing partial line.
	remainder := make([]byte, len(data))
	copy(remainder, data)
	p.buf.Reset()
	p.buf.Write(remainder)
}

func (p *Parser) handleLine(line []byte) {
	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		return
	}

	brace := strings.IndexByte(trimmed, '{')
	if brace < 0 {
		return
	}
	trimmed = trimmed[brace:]

	var evt resultEvent
	if err := json.Unmarshal([]byte(trimmed), &evt); err != nil {
		logging.L().Debug("resultparser: skipping unparsable line", zap.Error(err))
		return
	}

	switch evt.Type {
	case eventFinalResult:
		var s Summary
		if err := json.Unmarshal(evt.Data, &s); err != nil {
			logging.L().Warn("resultparser: final_result has invalid data payload", zap.Error(err))
			return
		}
		p.final = &s
	case eventTestResult:
		p.testsObserved++
	}
}

// Final returns the most recently observed final_result Summary, or nil if
// none has been parsed yet.
func (p *Parser) Final() *Summary {
	return p.final
}

// TestResultsObserved returns how many streaming test_result events were
// seen (informational only — the final Summary's Cases is authoritative).
func (p *Parser) TestResultsObserved() int {
	return p.testsObserved
}

// stripControlChars removes C0 control bytes except tab (0x09), LF (0x0A),
// and CR (0x0D).
func stripControlChars(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for _, b := range in {
		if b == 0x09 || b == 0x0A || b == 0x0D {
			out = append(out, b)
			continue
		}
		if b <= 0x08 || (b >= 0x0B && b <= 0x0C) || (b >= 0x0E && b <= 0x1F) {
			continue
		}
		out = append(out, b)
	}
	return out
}
