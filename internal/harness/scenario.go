package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/vuo/internal/state"
)

// Scenario is a scripted run of stores, bindings and steps.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// AuthToken seeds the Session store before any step runs.
	AuthToken string `yaml:"auth_token,omitempty"`

	// Persisted pre-populates the in-memory backend, keyed "namespace:name".
	Persisted map[string]any `yaml:"persisted,omitempty"`

	// Stores are created in order and subscribed to the bus.
	Stores []StoreDef `yaml:"stores"`

	// Responses script the transport used by request steps.
	Responses []ResponseDef `yaml:"responses,omitempty"`

	// Steps run sequentially.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// StoreDef declares one store.
type StoreDef struct {
	Name     string    `yaml:"name"`
	Cells    []CellDef `yaml:"cells"`
	Bindings []Binding `yaml:"bindings,omitempty"`
}

// CellDef declares one cell. Validators are installed in the order type,
// min/max, protect, persist.
type CellDef struct {
	Name string `yaml:"name"`

	// Type is a comma-separated type spec, e.g. "undefined, string".
	Type string `yaml:"type,omitempty"`

	Initial any      `yaml:"initial,omitempty"`
	Min     *float64 `yaml:"min,omitempty"`
	Max     *float64 `yaml:"max,omitempty"`

	// Strict rejects out-of-range values instead of clamping them.
	Strict bool `yaml:"strict,omitempty"`

	Protect bool `yaml:"protect,omitempty"`
	Persist bool `yaml:"persist,omitempty"`
}

// Binding maps the "value" of an action's payloads into a cell.
type Binding struct {
	Action string `yaml:"action"`
	Cell   string `yaml:"cell"`
}

// ResponseDef scripts one transport answer.
type ResponseDef struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`

	// Status >= 400 fails the call. Zero means 200.
	Status int `yaml:"status,omitempty"`
	Body   any `yaml:"body,omitempty"`
}

// Step is one scenario step. Exactly one of Dispatch, SetState and Request
// must be set.
type Step struct {
	Dispatch map[string]any `yaml:"dispatch,omitempty"`
	SetState *SetStateStep  `yaml:"set_state,omitempty"`
	Request  *RequestStep   `yaml:"request,omitempty"`

	// ExpectChange maps store names to the cells the step must change.
	// Nil skips the check; an empty map asserts no store changed.
	ExpectChange map[string]map[string]any `yaml:"expect_change,omitempty"`

	// ExpectError is a substring of the error the step must return.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// SetStateStep patches a store directly.
type SetStateStep struct {
	Store  string         `yaml:"store"`
	Values map[string]any `yaml:"values"`
}

// RequestStep issues a request and waits for its completion.
type RequestStep struct {
	// Action is the originating action identifier, e.g. "Users.get".
	Action string `yaml:"action"`

	Get  string `yaml:"get,omitempty"`
	Post string `yaml:"post,omitempty"`
	Put  string `yaml:"put,omitempty"`
	Del  string `yaml:"del,omitempty"`

	Data      any            `yaml:"data,omitempty"`
	Args      map[string]any `yaml:"args,omitempty"`
	Authorize bool           `yaml:"authorize,omitempty"`

	// Dispatch is broadcast with the response body. Defaults to Action.
	Dispatch string `yaml:"dispatch,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, final_state.
	Type string `yaml:"type"`

	// Action is the payload type (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Data is a subset of payload fields (trace_contains).
	Data map[string]any `yaml:"data,omitempty"`

	// Actions is the expected order of payload types (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number of dispatches (trace_count).
	Count int `yaml:"count,omitempty"`

	// Store and Expect describe the final state (final_state).
	Store  string         `yaml:"store,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario file. Files ending in .cue are
// evaluated as CUE; everything else is parsed as YAML.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	if filepath.Ext(path) == ".cue" {
		data, err = cueToJSON(path, data)
		if err != nil {
			return nil, err
		}
	}
	return ParseScenario(data)
}

// ParseScenario parses YAML (or JSON) scenario data and validates it.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse with strict field validation (catches typos like "step:" vs "steps:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// cueToJSON evaluates a CUE file and exports it as JSON, which the YAML
// decoder accepts unchanged.
func cueToJSON(path string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE scenario: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE scenario is not concrete: %w", err)
	}
	out, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export CUE scenario: %w", err)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	stores := make(map[string]bool, len(s.Stores))
	for i, st := range s.Stores {
		if err := validateStore(i, &st); err != nil {
			return err
		}
		if stores[st.Name] {
			return fmt.Errorf("stores[%d]: duplicate store %q", i, st.Name)
		}
		stores[st.Name] = true
	}

	for i, r := range s.Responses {
		if r.Method == "" || r.Path == "" {
			return fmt.Errorf("responses[%d]: method and path are required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step, stores); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStore(index int, st *StoreDef) error {
	if st.Name == "" {
		return fmt.Errorf("stores[%d]: name is required", index)
	}
	cells := make(map[string]bool, len(st.Cells))
	for j, c := range st.Cells {
		if c.Name == "" {
			return fmt.Errorf("stores[%d].cells[%d]: name is required", index, j)
		}
		if c.Type != "" {
			if _, err := state.ParseTypeSpec(c.Type); err != nil {
				return fmt.Errorf("stores[%d].cells[%d]: %w", index, j, err)
			}
		}
		cells[c.Name] = true
	}
	for j, b := range st.Bindings {
		if b.Action == "" {
			return fmt.Errorf("stores[%d].bindings[%d]: action is required", index, j)
		}
		if !cells[b.Cell] {
			return fmt.Errorf("stores[%d].bindings[%d]: unknown cell %q", index, j, b.Cell)
		}
	}
	return nil
}

func validateStep(index int, step *Step, stores map[string]bool) error {
	n := 0
	if step.Dispatch != nil {
		n++
	}
	if step.SetState != nil {
		n++
		if !stores[step.SetState.Store] {
			return fmt.Errorf("steps[%d]: set_state references unknown store %q", index, step.SetState.Store)
		}
	}
	if step.Request != nil {
		n++
		if step.Request.Action == "" {
			return fmt.Errorf("steps[%d]: request action is required", index)
		}
	}
	if n != 1 {
		return fmt.Errorf("steps[%d]: exactly one of dispatch, set_state, request is required", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Store == "" {
			return fmt.Errorf("assertions[%d]: store is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func (r ResponseDef) method() string {
	return strings.ToUpper(r.Method)
}
