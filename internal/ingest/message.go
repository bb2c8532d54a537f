package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Stage is the unit of pipeline work carried by a queue message.
type Stage string

const (
	StageChunk     Stage = "chunk"
	StageEmbed     Stage = "embed"
	StageSummarize Stage = "summarize"
)

// JobMessage is the queue payload. It lives for exactly one delivery and is
// redelivered verbatim when a stage fails before acking.
type JobMessage struct {
	Stage         Stage  `json:"stage"`
	DocID         string `json:"docId"`
	SourceLocator string `json:"sourceLocator"`
	Filename      string `json:"filename"`
	Regenerate    bool   `json:"regenerate"`
}

func (m JobMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func DecodeJobMessage(raw []byte) (JobMessage, error) {
	var m JobMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("malformed job message: %w", err)
	}
	switch m.Stage {
	case StageChunk, StageEmbed, StageSummarize:
	default:
		return m, fmt.Errorf("unknown stage %q", m.Stage)
	}
	if _, err := uuid.Parse(m.DocID); err != nil {
		return m, fmt.Errorf("invalid docId %q: %w", m.DocID, err)
	}
	return m, nil
}

// DocUUID returns the parsed document id. Callers run DecodeJobMessage
// first, so a parse failure here is a programming error.
func (m JobMessage) DocUUID() uuid.UUID {
	id, _ := uuid.Parse(m.DocID)
	return id
}
