// Package settings describes the configuration form of a backup or
// restore job so a generic renderer can present it without engine code.
package settings

import (
	"reflect"
	"sort"

	"dbdump/internal/job"
)

// ControlType selects the widget a renderer uses for a control
type ControlType string

const (
	Info       ControlType = "info"
	Select     ControlType = "select"
	Checkbox   ControlType = "checkbox"
	FilePicker ControlType = "filepicker"
	Input      ControlType = "input"
	Number     ControlType = "number"
	TextArea   ControlType = "textarea"
)

// Action names a host-side action a control can trigger
type Action string

// ActionFindDumpTool asks the host to run tool discovery
const ActionFindDumpTool Action = "find-dump-tool"

// Predicate decides visibility from the job configuration
type Predicate func(cfg job.Config) bool

// Validator returns a message for an invalid value, or "" when valid
type Validator func(cfg job.Config) string

// Change derives follow-up values after a control's value changed
type Change func(cfg job.Config) job.Config

// Option is one choice of a select control
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Control is one input of a section
type Control struct {
	Type        ControlType `json:"controlType"`
	SettingName string      `json:"settingName,omitempty"`
	Label       string      `json:"label"`
	Description string      `json:"description,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	Options     []Option    `json:"options,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Directory   bool        `json:"directory,omitempty"`
	Actions     []Action    `json:"actions,omitempty"`

	Show          Predicate `json:"-"`
	Valid         Validator `json:"-"`
	OnValueChange Change    `json:"-"`
}

// Section groups controls under a header
type Section struct {
	ID       string    `json:"id"`
	Header   string    `json:"header"`
	Show     Predicate `json:"-"`
	Controls []Control `json:"controls"`
}

// Schema is the ordered list of sections of one builder
type Schema []Section

// Visible reports whether the control is shown for cfg
func (c Control) Visible(cfg job.Config) bool {
	return c.Show == nil || c.Show(cfg)
}

// Check returns the validation message of a visible control for cfg
func (c Control) Check(cfg job.Config) string {
	if !c.Visible(cfg) {
		return ""
	}
	if c.Required && c.SettingName != "" && isEmpty(cfg, c.SettingName) {
		return c.Label + " is required"
	}
	if c.Valid != nil {
		return c.Valid(cfg)
	}
	return ""
}

// Visible reports whether the section is shown for cfg
func (s Section) Visible(cfg job.Config) bool {
	return s.Show == nil || s.Show(cfg)
}

// Control returns the control editing setting and whether one exists
func (s Schema) Control(setting string) (Control, bool) {
	for _, sec := range s {
		for _, c := range sec.Controls {
			if c.SettingName == setting {
				return c, true
			}
		}
	}
	return Control{}, false
}

// ApplyChanges runs OnValueChange for every control whose setting is in
// changed. A hook never overrides another setting of the same change: such
// values are restored and their own hooks run again afterwards.
func (s Schema) ApplyChanges(cfg job.Config, changed []string) job.Config {
	explicit := map[string]interface{}{}
	values := valuesOf(cfg)
	for _, name := range changed {
		if v, ok := values[name]; ok {
			explicit[name] = v
		}
	}

	var rerun []string
	seen := map[string]bool{}
	run := func(name string) {
		c, ok := s.Control(name)
		if !ok || c.OnValueChange == nil {
			return
		}
		var restored []string
		cfg, restored = restoreExplicit(c.OnValueChange(cfg), explicit, name)
		for _, r := range restored {
			if !seen[r] {
				seen[r] = true
				rerun = append(rerun, r)
			}
		}
	}

	for _, name := range changed {
		run(name)
	}
	pending := rerun
	rerun = nil
	for _, name := range pending {
		run(name)
	}
	return cfg
}

// restoreExplicit resets the settings in explicit, other than owner, that
// cfg no longer holds. It returns the names it reset.
func restoreExplicit(cfg job.Config, explicit map[string]interface{}, owner string) (job.Config, []string) {
	current := valuesOf(cfg)
	patch := job.Patch{}
	var names []string
	for name, want := range explicit {
		if name == owner || reflect.DeepEqual(current[name], want) {
			continue
		}
		patch[name] = want
		names = append(names, name)
	}
	if len(patch) == 0 {
		return cfg, nil
	}
	merged, err := cfg.Merge(patch)
	if err != nil {
		return cfg, nil
	}
	sort.Strings(names)
	return merged, names
}

// Problem is a visible control that failed validation
type Problem struct {
	Section     string `json:"section"`
	SettingName string `json:"settingName"`
	Message     string `json:"message"`
}

// Validate returns the problems of visible controls in visible sections
func (s Schema) Validate(cfg job.Config) []Problem {
	var problems []Problem
	for _, sec := range s {
		if !sec.Visible(cfg) {
			continue
		}
		for _, c := range sec.Controls {
			if msg := c.Check(cfg); msg != "" {
				problems = append(problems, Problem{Section: sec.ID, SettingName: c.SettingName, Message: msg})
			}
		}
	}
	return problems
}

// ControlState is a control as rendered for one configuration
type ControlState struct {
	Control
	Visible bool        `json:"visible"`
	Error   string      `json:"error,omitempty"`
	Value   interface{} `json:"value,omitempty"`
}

// SectionState is a section as rendered for one configuration
type SectionState struct {
	ID       string         `json:"id"`
	Header   string         `json:"header"`
	Visible  bool           `json:"visible"`
	Controls []ControlState `json:"controls"`
}

// Evaluate computes visibility, validity and current values for cfg.
// Renderers call it again after every configuration change.
func (s Schema) Evaluate(cfg job.Config) []SectionState {
	values := valuesOf(cfg)
	out := make([]SectionState, 0, len(s))
	for _, sec := range s {
		st := SectionState{ID: sec.ID, Header: sec.Header, Visible: sec.Visible(cfg)}
		for _, c := range sec.Controls {
			cs := ControlState{Control: c, Visible: st.Visible && c.Visible(cfg)}
			if cs.Visible {
				cs.Error = c.Check(cfg)
			}
			if c.SettingName != "" {
				cs.Value = values[c.SettingName]
			}
			st.Controls = append(st.Controls, cs)
		}
		out = append(out, st)
	}
	return out
}
