package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/kalambet/jobportal/internal/filter"
)

// encodeRecord serialises r for the data column.
func encodeRecord(r filter.Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding record %q: %w", r.ID(), err)
	}
	return b, nil
}

// decodeRecord keeps numbers as json.Number so they re-encode exactly as stored.
func decodeRecord(data []byte) (filter.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var r filter.Record
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return r, nil
}

// mergeFields applies fields over r. The id field is immutable.
func mergeFields(r filter.Record, fields map[string]any) filter.Record {
	out := maps.Clone(r)
	for k, v := range fields {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}
