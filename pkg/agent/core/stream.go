// Package core turns raw completion streams into agent events.
package core

import (
	"strings"

	"github.com/entrhq/recall/pkg/llm"
	"github.com/entrhq/recall/pkg/types"
)

const (
	toolOpen  = "<tool>"
	toolClose = "</tool>"
)

// StreamResult is everything collected from one completion stream.
type StreamResult struct {
	Err error

	// Usage is the server-reported usage, if the stream carried one.
	Usage *llm.Usage

	// Content is the visible assistant text with any tool call removed.
	Content string

	// ToolCall is the inner XML of the first <tool> element, without the tags.
	ToolCall string

	Role string
}

// ProcessStream consumes stream until it is closed, emitting message events
// for the visible text. Text inside a <tool> element is withheld from the
// events and returned in ToolCall. Anything after the closing tag is dropped.
func ProcessStream(stream <-chan *llm.StreamChunk, emit func(*types.AgentEvent)) *StreamResult {
	p := &streamProcessor{emit: emit}
	result := &StreamResult{}

	for chunk := range stream {
		if chunk.IsError() {
			result.Err = chunk.Error
			continue
		}
		if chunk.Role != "" && result.Role == "" {
			result.Role = chunk.Role
		}
		if chunk.Usage != nil {
			result.Usage = chunk.Usage
		}
		if chunk.Content != "" {
			p.feed(chunk.Content)
		}
	}
	p.finish()

	result.Content = p.content.String()
	result.ToolCall = p.tool.String()
	return result
}

type streamMode int

const (
	modeText streamMode = iota
	modeTool
	modeDone
)

type streamProcessor struct {
	emit    func(*types.AgentEvent)
	pending string
	content strings.Builder
	tool    strings.Builder
	mode    streamMode
	started bool
}

func (p *streamProcessor) feed(s string) {
	switch p.mode {
	case modeText:
		p.pending += s
		if idx := strings.Index(p.pending, toolOpen); idx >= 0 {
			p.emitText(p.pending[:idx])
			rest := p.pending[idx+len(toolOpen):]
			p.pending = ""
			p.mode = modeTool
			if rest != "" {
				p.feed(rest)
			}
			return
		}
		// Hold back a suffix that could be the start of "<tool>".
		hold := partialSuffix(p.pending, toolOpen)
		p.emitText(p.pending[:len(p.pending)-hold])
		p.pending = p.pending[len(p.pending)-hold:]
	case modeTool:
		p.pending += s
		if idx := strings.Index(p.pending, toolClose); idx >= 0 {
			p.tool.WriteString(p.pending[:idx])
			p.pending = ""
			p.mode = modeDone
			return
		}
		hold := partialSuffix(p.pending, toolClose)
		p.tool.WriteString(p.pending[:len(p.pending)-hold])
		p.pending = p.pending[len(p.pending)-hold:]
	case modeDone:
	}
}

func (p *streamProcessor) finish() {
	switch p.mode {
	case modeText:
		p.emitText(p.pending)
	case modeTool:
		// Unterminated tool element: keep what arrived and let the parser decide.
		p.tool.WriteString(p.pending)
	case modeDone:
	}
	p.pending = ""
	if p.started {
		p.emit(types.NewMessageEndEvent())
	}
}

func (p *streamProcessor) emitText(s string) {
	if s == "" {
		return
	}
	if !p.started {
		p.started = true
		p.emit(types.NewMessageStartEvent())
	}
	p.content.WriteString(s)
	p.emit(types.NewMessageContentEvent(s))
}

// partialSuffix returns the length of the longest suffix of s that is a
// proper prefix of tag.
func partialSuffix(s, tag string) int {
	limit := len(tag) - 1
	if limit > len(s) {
		limit = len(s)
	}
	for n := limit; n > 0; n-- {
		if strings.HasSuffix(s, tag[:n]) {
			return n
		}
	}
	return 0
}
