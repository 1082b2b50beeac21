package highlight

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Highlight is a detected candidate segment eligible for export.
type Highlight struct {
	Description string
	Start       time.Duration
	End         time.Duration
	Score       float64
}

// Duration returns the segment length.
func (h Highlight) Duration() time.Duration {
	return h.End - h.Start
}

// Valid reports whether the time range is exportable.
func (h Highlight) Valid() bool {
	return h.End > h.Start
}

// Record is the JSON-facing form of a Highlight, with plain-seconds fields.
type Record struct {
	Description string  `json:"description"`
	StartSec    float64 `json:"start_sec"`
	EndSec      float64 `json:"end_sec"`
	Score       float64 `json:"score"`
}

// ToRecord converts a Highlight for serialization.
func (h Highlight) ToRecord() Record {
	return Record{
		Description: h.Description,
		StartSec:    h.Start.Seconds(),
		EndSec:      h.End.Seconds(),
		Score:       h.Score,
	}
}

// FromRecord converts a serialized Record back into a Highlight.
func FromRecord(r Record) Highlight {
	return Highlight{
		Description: r.Description,
		Start:       time.Duration(r.StartSec * float64(time.Second)),
		End:         time.Duration(r.EndSec * float64(time.Second)),
		Score:       r.Score,
	}
}

// SaveList writes highlights to a JSON file next to the analyzed video.
func SaveList(path string, highlights []Highlight) error {
	records := make([]Record, 0, len(highlights))
	for _, h := range highlights {
		records = append(records, h.ToRecord())
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal highlights: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadList reads a highlights JSON file written by SaveList.
func LoadList(path string) ([]Highlight, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read highlights file: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse highlights file: %w", err)
	}
	highlights := make([]Highlight, 0, len(records))
	for _, r := range records {
		highlights = append(highlights, FromRecord(r))
	}
	return highlights, nil
}
