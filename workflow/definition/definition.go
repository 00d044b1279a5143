// Copyright (c) Microsoft. All rights reserved.

// Package definition loads workflows declared in YAML.
//
//	name: triage
//	start: classify
//	executors:
//	  - id: classify
//	    kind: jq
//	    query: '{priority: (if .severity > 3 then "high" else "low" end), text: .text}'
//	  - id: page
//	    kind: expr
//	    expr: '"PAGE: " + input.text'
//	  - id: queue
//	    kind: identity
//	edges:
//	  - from: classify
//	    to: page
//	    when: msg.priority == "high"
//	  - from: classify
//	    to: queue
//	    when: msg.priority != "high"
//
// Every declarative executor computes one value from its input. A terminal
// executor yields it as a workflow output; any other executor sends it on.
package definition

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jochenvw/agent-framework-workflows/workflow"
)

var (
	// ErrDefinition is the base error for this package.
	ErrDefinition = errors.New("workflow definition error")

	// ErrInvalid indicates a definition that fails validation.
	ErrInvalid = fmt.Errorf("%w: invalid", ErrDefinition)

	// ErrUnknownAgent indicates an agent executor naming an agent the
	// environment does not provide.
	ErrUnknownAgent = fmt.Errorf("%w: unknown agent", ErrDefinition)
)

// Kind selects what a declarative executor does.
type Kind string

const (
	// KindIdentity passes its input through unchanged.
	KindIdentity Kind = "identity"
	// KindExpr evaluates an expr-lang expression over input, source and msg_type.
	KindExpr Kind = "expr"
	// KindJQ runs a jq query over the input.
	KindJQ Kind = "jq"
	// KindAgent runs a named agent.
	KindAgent Kind = "agent"
)

// Definition is a workflow declared as data.
type Definition struct {
	Name          string        `yaml:"name"           json:"name"                     validate:"required"`
	Description   string        `yaml:"description"    json:"description,omitempty"`
	Start         string        `yaml:"start"          json:"start"                    validate:"required"`
	MaxSupersteps int           `yaml:"max_supersteps" json:"max_supersteps,omitempty" validate:"gte=0"`
	Executors     []ExecutorDef `yaml:"executors"      json:"executors"                validate:"required,min=1,dive"`
	Edges         []EdgeDef     `yaml:"edges"          json:"edges,omitempty"          validate:"dive"`
	FanOut        []FanOutDef   `yaml:"fan_out"        json:"fan_out,omitempty"        validate:"dive"`
	FanIn         []FanInDef    `yaml:"fan_in"         json:"fan_in,omitempty"         validate:"dive"`
}

// ExecutorDef declares one executor.
type ExecutorDef struct {
	ID    string `yaml:"id"    json:"id"              validate:"required"`
	Kind  Kind   `yaml:"kind"  json:"kind"            validate:"required,oneof=identity expr jq agent"`
	Expr  string `yaml:"expr"  json:"expr,omitempty"  validate:"required_if=Kind expr"`
	Query string `yaml:"query" json:"query,omitempty" validate:"required_if=Kind jq"`
	Agent string `yaml:"agent" json:"agent,omitempty" validate:"required_if=Kind agent"`
}

// EdgeDef declares a direct edge. When is an optional CEL condition.
type EdgeDef struct {
	From  string `yaml:"from"  json:"from"            validate:"required"`
	To    string `yaml:"to"    json:"to"              validate:"required"`
	When  string `yaml:"when"  json:"when,omitempty"`
	Label string `yaml:"label" json:"label,omitempty"`
}

// FanOutDef sends every message from From to all of To.
type FanOutDef struct {
	From string   `yaml:"from" json:"from" validate:"required"`
	To   []string `yaml:"to"   json:"to"   validate:"required,min=1,dive,required"`
}

// FanInDef joins the messages of From into one delivery to To.
type FanInDef struct {
	From []string `yaml:"from" json:"from" validate:"required,min=1,dive,required"`
	To   string   `yaml:"to"   json:"to"   validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates a YAML definition. Unknown fields are errors.
func Parse(data []byte) (*Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: definition is empty", ErrInvalid)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrInvalid, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile reads and parses the definition at path.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrDefinition, path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Validate checks field-level rules. Cross references are checked by
// [Definition.Build].
func (d *Definition) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	problems := make([]string, len(verrs))
	for i, fe := range verrs {
		problems[i] = describe(fe)
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Definition.")
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	default:
		return fmt.Sprintf("%s fails %s", field, fe.Tag())
	}
}

// RunOptions returns the run options the definition implies.
func (d *Definition) RunOptions() []workflow.RunOption {
	var opts []workflow.RunOption
	if d.MaxSupersteps > 0 {
		opts = append(opts, workflow.WithMaxSupersteps(d.MaxSupersteps))
	}
	return opts
}

// AgentNames lists the agents referenced by agent executors.
func (d *Definition) AgentNames() []string {
	var names []string
	for _, e := range d.Executors {
		if e.Kind == KindAgent {
			names = append(names, e.Agent)
		}
	}
	return names
}
