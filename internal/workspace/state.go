package workspace

import (
	"encoding/json"
	"fmt"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Phase is the workflow step a feature is in.
type Phase string

// Workflow phases in order.
const (
	PhaseSpec    Phase = "spec"
	PhaseDesign  Phase = "design"
	PhaseTask    Phase = "task"
	PhaseExecute Phase = "execute"
)

// Label returns the human-readable phase name used in directive headers.
func (p Phase) Label() string {
	switch p {
	case PhaseSpec:
		return "Requirements Gathering"
	case PhaseDesign:
		return "Design"
	case PhaseTask:
		return "Task Planning"
	case PhaseExecute:
		return "Execute"
	}
	return string(p)
}

// State is the persisted progress record of a feature.
type State struct {
	Feature        string    `json:"feature"`
	Phase          Phase     `json:"phase"`
	CompletedTasks []string  `json:"completed_tasks"`
	CurrentTask    string    `json:"current_task,omitempty"`
	LastUpdated    time.Time `json:"last_updated"`
}

// NewState returns a fresh state for feature in phase.
func NewState(feature string, phase Phase) *State {
	return &State{
		Feature:        feature,
		Phase:          phase,
		CompletedTasks: []string{},
	}
}

// MarkCompleted records id as completed once.
func (s *State) MarkCompleted(id string) {
	for _, done := range s.CompletedTasks {
		if done == id {
			return
		}
	}
	s.CompletedTasks = append(s.CompletedTasks, id)
}

// Unmark removes id from the completed list.
func (s *State) Unmark(id string) {
	kept := s.CompletedTasks[:0]
	for _, done := range s.CompletedTasks {
		if done != id {
			kept = append(kept, done)
		}
	}
	s.CompletedTasks = kept
}

const stateSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["feature", "phase", "completed_tasks", "last_updated"],
  "properties": {
    "feature": {"type": "string", "minLength": 1},
    "phase": {"enum": ["spec", "design", "task", "execute"]},
    "completed_tasks": {
      "type": "array",
      "items": {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)*$"}
    },
    "current_task": {"type": "string"},
    "last_updated": {"type": "string"}
  }
}`

var stateSchema = jsonschema.MustCompileString("state.schema.json", stateSchemaJSON)

// decodeState validates data against the state schema and decodes it.
// Any failure wraps ErrMalformedState.
func decodeState(data []byte) (*State, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}

	if err := stateSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}

	return &state, nil
}
