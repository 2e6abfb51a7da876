package cache

import (
	"bytes"
	"encoding/json"

	"github.com/Rrens/chatdesk/internal/domain"
)

// patchPayload merges changes into the record with id and returns the
// re-encoded payload
func patchPayload(payload json.RawMessage, id string, changes domain.Fields) (json.RawMessage, bool, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return payload, false, nil
	}

	if trimmed[0] == '[' {
		var records []domain.Fields
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, false, err
		}
		patched := false
		for i, rec := range records {
			if rec.ID() == id {
				records[i] = rec.Merge(changes)
				patched = true
				break
			}
		}
		if !patched {
			return payload, false, nil
		}
		data, err := json.Marshal(records)
		return data, err == nil, err
	}

	var rec domain.Fields
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, false, err
	}
	if rec.ID() != id {
		return payload, false, nil
	}
	data, err := json.Marshal(rec.Merge(changes))
	return data, err == nil, err
}

func findRecord(payload json.RawMessage, id string) (domain.Fields, bool, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, false, nil
	}

	if trimmed[0] == '[' {
		var records []domain.Fields
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, false, err
		}
		for _, rec := range records {
			if rec.ID() == id {
				return rec, true, nil
			}
		}
		return nil, false, nil
	}

	var rec domain.Fields
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, false, err
	}
	if rec.ID() != id {
		return nil, false, nil
	}
	return rec, true, nil
}
