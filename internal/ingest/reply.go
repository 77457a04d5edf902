// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"encoding/json"
	"strings"
)

// DefaultAnalysisMessage is shown when a structured reply carries no message.
const DefaultAnalysisMessage = "File berhasil dianalisis"

// ReplyKind tags a [Reply].
type ReplyKind int

const (
	// ReplyStructured: a structured block was found and decoded.
	ReplyStructured ReplyKind = iota
	// ReplyMessageOnly: no usable block; the text is still shown to the user.
	ReplyMessageOnly
	// ReplyUnparseable: nothing usable at all, not even a message.
	ReplyUnparseable
)

// RawCandidate is one extracted entry before validation. Values are kept raw
// because the model is free to send numbers as strings.
type RawCandidate struct {
	Product json.RawMessage `json:"product"`
	Qty     json.RawMessage `json:"qty"`
	Price   json.RawMessage `json:"price"`
}

// Reply is the parsed model output.
type Reply struct {
	Kind       ReplyKind
	Message    string
	Candidates []RawCandidate
}

type structuredBlock struct {
	Message      string         `json:"message"`
	Transactions []RawCandidate `json:"transactions"`
}

/*
ParseReply scans model text for its outermost {...} block, from the first
opening brace to the last closing brace.

  - Blank text: Unparseable.
  - No block, or a block that does not decode: MessageOnly with the text.
  - Otherwise: Structured with the decoded message and raw candidates.
*/
func ParseReply(text string) Reply {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Reply{Kind: ReplyUnparseable}
	}

	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start < 0 || end < start {
		return Reply{Kind: ReplyMessageOnly, Message: trimmed}
	}

	var block structuredBlock
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &block); err != nil {
		return Reply{Kind: ReplyMessageOnly, Message: trimmed}
	}

	message := strings.TrimSpace(block.Message)
	if message == "" {
		message = DefaultAnalysisMessage
	}
	return Reply{Kind: ReplyStructured, Message: message, Candidates: block.Transactions}
}
