// Package field resolves a workflow's field configuration document into a
// FieldPlan: for each of the six fixed standard fields, whether it is
// enabled (and required), disabled, or replaced by a custom field. The raw
// configuration document is never exposed; consumers read only the plan.
package field

import (
	"encoding/json"
	"fmt"

	"github.com/Liam-Lillieroth/MetaTasks/id"
)

// Name identifies one of the six fixed standard fields.
type Name string

// The standard fields of a work item's data contract.
const (
	Title             Name = "title"
	Description       Name = "description"
	Priority          Name = "priority"
	Tags              Name = "tags"
	DueDate           Name = "due_date"
	EstimatedDuration Name = "estimated_duration"
)

// Names lists the standard fields in canonical order.
func Names() []Name {
	return []Name{Title, Description, Priority, Tags, DueDate, EstimatedDuration}
}

// State classifies a field's resolved disposition.
type State string

const (
	// Enabled means the field is part of the data contract under its
	// standard name.
	Enabled State = "enabled"
	// Disabled means the field is omitted from the data contract entirely.
	Disabled State = "disabled"
	// Replaced means a custom field stands in for the standard field; its
	// value lives under a namespaced key.
	Replaced State = "replaced"
)

// setting is one whole-field override entry in the raw document. An
// override replaces the field's default entry completely; there is no
// partial merge of attributes.
type setting struct {
	Enabled     bool             `json:"enabled"`
	Required    bool             `json:"required"`
	Replacement id.CustomFieldID `json:"replacement,omitempty"`
}

// Config is a workflow's raw field configuration document. It is opaque:
// build it with the With* methods and read it through Resolve only.
// The zero value applies no overrides.
type Config struct {
	overrides map[Name]setting
}

func (c Config) clone() Config {
	out := Config{overrides: make(map[Name]setting, len(c.overrides)+1)}
	for k, v := range c.overrides {
		out.overrides[k] = v
	}
	return out
}

// WithEnabled overrides a field to be enabled with the given required flag.
func (c Config) WithEnabled(f Name, required bool) Config {
	out := c.clone()
	out.overrides[f] = setting{Enabled: true, Required: required}
	return out
}

// WithDisabled overrides a field to be omitted from the data contract.
func (c Config) WithDisabled(f Name) Config {
	out := c.clone()
	out.overrides[f] = setting{Enabled: false}
	return out
}

// WithReplacement overrides a field to be replaced by the given custom
// field.
func (c Config) WithReplacement(f Name, cf id.CustomFieldID, required bool) Config {
	out := c.clone()
	out.overrides[f] = setting{Enabled: true, Required: required, Replacement: cf}
	return out
}

// MarshalJSON implements json.Marshaler. The document maps standard field
// names to whole override entries.
func (c Config) MarshalJSON() ([]byte, error) {
	doc := make(map[Name]setting, len(c.overrides))
	for k, v := range c.overrides {
		doc[k] = v
	}
	return json.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler. Entries for unknown field
// names are dropped; per-field entries replace defaults wholesale.
func (c *Config) UnmarshalJSON(data []byte) error {
	var doc map[Name]setting
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("field: parse config: %w", err)
	}

	c.overrides = make(map[Name]setting, len(doc))
	known := make(map[Name]bool, 6)
	for _, n := range Names() {
		known[n] = true
	}
	for k, v := range doc {
		if known[k] {
			c.overrides[k] = v
		}
	}
	return nil
}

// Resolution is one field's resolved disposition within a plan.
type Resolution struct {
	State    State            `json:"state"`
	Required bool             `json:"required"`
	// ReplacedBy is set only when State is Replaced.
	ReplacedBy id.CustomFieldID `json:"replaced_by,omitempty"`
}

// Plan maps every standard field to exactly one resolution.
type Plan map[Name]Resolution

// Resolve merges a workflow's overrides with the defaults. Defaults: all
// six fields enabled, only title required. An override entry replaces the
// field's whole default entry; unspecified fields keep their defaults.
func Resolve(cfg Config) Plan {
	plan := Plan{
		Title:             {State: Enabled, Required: true},
		Description:       {State: Enabled},
		Priority:          {State: Enabled},
		Tags:              {State: Enabled},
		DueDate:           {State: Enabled},
		EstimatedDuration: {State: Enabled},
	}

	for name, s := range cfg.overrides {
		switch {
		case !s.Enabled:
			plan[name] = Resolution{State: Disabled}
		case !s.Replacement.IsNil():
			plan[name] = Resolution{State: Replaced, Required: s.Required, ReplacedBy: s.Replacement}
		default:
			plan[name] = Resolution{State: Enabled, Required: s.Required}
		}
	}
	return plan
}

// DataKey returns the key under which a field's value lives in the data
// contract, and whether the field participates at all. Replaced fields use
// a namespaced key distinct from the standard name.
func (p Plan) DataKey(f Name) (string, bool) {
	r, ok := p[f]
	if !ok {
		return "", false
	}
	switch r.State {
	case Disabled:
		return "", false
	case Replaced:
		return "custom_" + r.ReplacedBy.String(), true
	default:
		return string(f), true
	}
}

// ValidateData enforces the plan against a work item data map at entry
// time: required enabled/replaced fields must be present and non-empty,
// and disabled fields must not appear under their standard name.
func (p Plan) ValidateData(data map[string]any) error {
	for _, name := range Names() {
		r := p[name]

		if r.State == Disabled {
			if _, present := data[string(name)]; present {
				return fmt.Errorf("field: %s is disabled for this workflow", name)
			}
			continue
		}

		key, _ := p.DataKey(name)
		if !r.Required {
			continue
		}
		v, present := data[key]
		if !present || v == nil || v == "" {
			return fmt.Errorf("field: %s is required", key)
		}
	}
	return nil
}
