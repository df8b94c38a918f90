package handoffdb

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelrtp.ai/internal/handoff"
	"voxelrtp.ai/internal/world"
)

const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["requester_id", "status", "request_kind", "world_name", "location", "created_at"],
  "additionalProperties": false,
  "properties": {
    "requester_id": {"type": "string", "minLength": 1},
    "status": {"enum": ["PENDING", "COMPLETE"]},
    "request_kind": {"enum": ["SINGLE", "GROUP"]},
    "world_name": {"type": "string", "minLength": 1},
    "location": {
      "oneOf": [
        {"type": "null"},
        {
          "type": "object",
          "required": ["world", "x", "y", "z"],
          "properties": {
            "world": {"type": "string", "minLength": 1},
            "x": {"type": "integer"},
            "y": {"type": "integer"},
            "z": {"type": "integer"}
          }
        }
      ]
    },
    "created_at": {"type": "string", "minLength": 1},
    "min_radius": {"type": "integer", "minimum": 0},
    "max_radius": {"type": "integer", "minimum": 0},
    "leader_id": {"type": "string"},
    "members": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "origin": {"type": "string"}
  },
  "if": {"properties": {"status": {"const": "COMPLETE"}}},
  "then": {"properties": {"location": {"type": "object"}}}
}`

var schema = jsonschema.MustCompileString("handoff_record.schema.json", recordSchema)

// encode marshals r and checks it against the record schema.
func encode(r handoff.Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	if err := validate(b); err != nil {
		return nil, err
	}
	return b, nil
}

func validate(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w: %v", handoff.ErrInvalidRecord, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", handoff.ErrInvalidRecord, err)
	}
	return nil
}

func decode(b []byte) (handoff.Record, error) {
	if err := validate(b); err != nil {
		return handoff.Record{}, err
	}
	var r handoff.Record
	if err := json.Unmarshal(b, &r); err != nil {
		return handoff.Record{}, err
	}
	return r, nil
}

// complete applies the PENDING->COMPLETE transition to a decoded record.
func complete(r *handoff.Record, loc world.Coordinate) error {
	if r.Status != handoff.StatusPending {
		return handoff.ErrNotPending
	}
	r.Status = handoff.StatusComplete
	l := loc
	r.Location = &l
	return nil
}
