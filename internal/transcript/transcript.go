// Package transcript reads Claude Code session transcripts.
//
// Transcripts are JSONL files where each line wraps a message either at the
// top level or under a "message" key, and message content is either a plain
// string or a list of typed blocks. Gzip-compressed transcripts (.gz) are
// decompressed transparently.
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"wiggum/internal/project"
)

// maxLineBytes bounds a single transcript line. Assistant messages with
// large embedded file contents can run long.
const maxLineBytes = 4 << 20

// Block is one tool_use or tool_result content block of a message.
type Block struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Name      string          `json:"name,omitempty"`
	ID        string          `json:"id,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
}

// ResultText flattens a tool_result content field, which is either a plain
// string or a list of text blocks.
func (b Block) ResultText() string {
	if len(b.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Content, &s); err == nil {
		return s
	}
	var blocks []Block
	if err := json.Unmarshal(b.Content, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, inner := range blocks {
		if inner.Text != "" {
			parts = append(parts, inner.Text)
		}
	}
	return strings.Join(parts, " ")
}

type message struct {
	Role    string          `json:"role"`
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

func (m message) isAssistant() bool {
	return m.Role == "assistant" || m.Type == "assistant" || m.Type == "assistant_message"
}

func (m message) isUser() bool {
	return m.Role == "user" || m.Type == "user" || m.Type == "human"
}

func (m message) isToolResult() bool {
	return m.Role == "tool" || m.Type == "tool_result"
}

// isPrompt reports whether the message is a real user prompt. Tool results
// ride in user-role messages, so a user message only counts as a prompt
// when it carries no tool blocks.
func (m message) isPrompt() bool {
	return m.isUser() && !m.isToolResult() && len(m.toolBlocks()) == 0
}

// text flattens the message content to plain text. ok is false when the
// message carries no text at all (tool-only turns), so callers can keep an
// earlier message's text instead.
func (m message) text() (string, bool) {
	if len(m.Content) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s, true
	}
	var blocks []Block
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return "", false
	}
	var parts []string
	for _, b := range blocks {
		switch {
		case b.Text != "":
			parts = append(parts, b.Text)
		case b.Type == "text" && len(b.Content) > 0:
			var inner string
			if err := json.Unmarshal(b.Content, &inner); err == nil {
				parts = append(parts, inner)
			}
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, ""), true
}

func (m message) toolBlocks() []Block {
	var all []Block
	if err := json.Unmarshal(m.Content, &all); err != nil {
		return nil
	}
	var blocks []Block
	for _, b := range all {
		if b.Type == "tool_use" || b.Type == "tool_result" {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// decodeMessage unwraps one transcript line into its message. Lines that
// hold no decodable message are skipped.
func decodeMessage(raw []byte) (message, bool) {
	var outer struct {
		Message json.RawMessage `json:"message"`
		Role    string          `json:"role"`
		Type    string          `json:"type"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &outer); err != nil {
		return message{}, false
	}
	if len(outer.Message) > 0 {
		if string(outer.Message) == "null" {
			return message{}, false
		}
		var msg message
		if err := json.Unmarshal(outer.Message, &msg); err != nil {
			return message{}, false
		}
		return msg, true
	}
	return message{Role: outer.Role, Type: outer.Type, Content: outer.Content}, true
}

type gzReadCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (g gzReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g gzReadCloser) Close() error {
	if err := g.gz.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}

// Open opens a transcript for reading, expanding a leading ~ and
// decompressing .gz files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(project.ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to open compressed transcript: %w", err)
		}
		return gzReadCloser{gz: gz, f: f}, nil
	}
	return f, nil
}

// readMessages scans every decodable message in the transcript.
func readMessages(path string) ([]message, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var msgs []message
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if msg, ok := decodeMessage(raw); ok {
			msgs = append(msgs, msg)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan transcript: %w", err)
	}
	return msgs, nil
}

// LastAssistantText returns the text of the final assistant message, or ""
// when the transcript is missing, unreadable, or holds no assistant text.
func LastAssistantText(path string) string {
	msgs, err := readMessages(path)
	if err != nil {
		return ""
	}
	var last string
	for _, msg := range msgs {
		if !msg.isAssistant() {
			continue
		}
		if text, ok := msg.text(); ok {
			last = text
		}
	}
	return last
}

// LatestTurnBlocks returns the tool_use and tool_result blocks of the last
// assistant turn, in transcript order: everything after the final real user
// prompt.
func LatestTurnBlocks(path string) ([]Block, error) {
	msgs, err := readMessages(path)
	if err != nil {
		return nil, err
	}

	start := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].isPrompt() {
			start = i + 1
			break
		}
	}

	var blocks []Block
	for _, msg := range msgs[start:] {
		blocks = append(blocks, msg.toolBlocks()...)
	}
	return blocks, nil
}
