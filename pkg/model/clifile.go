package model

import (
	"encoding/json"
	"fmt"
)

// CliFile is the combined-file wire format (spec.md §6): a JSON array
// containing exactly one task entry and one solution entry, disambiguated
// structurally (a task entry carries width/height/products; a solution
// entry is a bare array of placement objects).
//
// Grounded on original_source/model/src/cli.rs's untagged CliFileEntry enum
// and model/src/input.rs's task/solution splitting.
type CliFile struct {
	Task     *Task
	Solution Solution
}

// ParseCliFile splits a combined-file array, sniffing whether each element is
// a task object (has "width") or a solution array (a JSON array itself).
func ParseCliFile(data []byte) (*CliFile, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse combined file: %w", err)
	}

	cf := &CliFile{}
	for _, entry := range raw {
		trimmed := trimLeadingSpace(entry)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			sol, err := ParseSolution(entry)
			if err != nil {
				return nil, fmt.Errorf("parse combined file solution entry: %w", err)
			}
			cf.Solution = sol
			continue
		}

		var probe struct {
			Width *uint8 `json:"width"`
		}
		if err := json.Unmarshal(entry, &probe); err == nil && probe.Width != nil {
			task, err := ParseTask(entry)
			if err != nil {
				return nil, fmt.Errorf("parse combined file task entry: %w", err)
			}
			cf.Task = task
			continue
		}

		return nil, fmt.Errorf("parse combined file: entry is neither a task nor a solution")
	}

	return cf, nil
}

func trimLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return b[i:]
}

// ToJSON renders the combined file back to its two-element array form.
func (cf *CliFile) ToJSON() ([]byte, error) {
	entries := make([]interface{}, 0, 2)
	if cf.Task != nil {
		entries = append(entries, cf.Task)
	}
	if cf.Solution != nil {
		entries = append(entries, cf.Solution)
	}
	return json.MarshalIndent(entries, "", "  ")
}
