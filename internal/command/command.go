// Package command describes invocations of external dump/restore tools
// and native SQL statements as ordered, typed steps.
package command

import (
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Env is the environment a process step adds to the inherited one.
// A nil value means the variable must be removed before the process starts.
type Env map[string]*string

// Set assigns value to name
func (e Env) Set(name, value string) {
	e[name] = &value
}

// Unset marks name for removal
func (e Env) Unset(name string) {
	e[name] = nil
}

// SetOrUnset assigns value when it is non-empty and unsets name otherwise
func (e Env) SetOrUnset(name, value string) {
	if value == "" {
		e.Unset(name)
		return
	}
	e.Set(name, value)
}

// Lookup returns the value for name and whether it is set
func (e Env) Lookup(name string) (string, bool) {
	v, ok := e[name]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// IsUnset reports whether name is explicitly removed
func (e Env) IsUnset(name string) bool {
	v, ok := e[name]
	return ok && v == nil
}

// Names returns the variable names in sorted order
func (e Env) Names() []string {
	names := make([]string, 0, len(e))
	for k := range e {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Apply merges e over base (a KEY=VALUE list such as os.Environ()).
// Later duplicates in base lose to e; unset names are dropped.
func (e Env) Apply(base []string) []string {
	out := make([]string, 0, len(base)+len(e))
	for _, kv := range base {
		name := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			name = kv[:i]
		}
		if _, overridden := e[name]; overridden {
			continue
		}
		out = append(out, kv)
	}
	for _, name := range e.Names() {
		if v := e[name]; v != nil {
			out = append(out, name+"="+*v)
		}
	}
	return out
}

func (e Env) clone() Env {
	if e == nil {
		return nil
	}
	c := make(Env, len(e))
	for k, v := range e {
		if v == nil {
			c[k] = nil
			continue
		}
		s := *v
		c[k] = &s
	}
	return c
}

// Kind distinguishes spawned processes from statements on the live connection
type Kind string

const (
	KindProcess Kind = "process"
	KindSQL     Kind = "sql"
)

// Step is one invocable unit. For process steps MainCommand is the program
// and Options its argument vector; for SQL steps MainCommand is the statement.
type Step struct {
	Kind        Kind     `json:"kind"`
	MainCommand string   `json:"mainCommand"`
	Options     []string `json:"options,omitempty"`
	Env         Env      `json:"env,omitempty"`

	// ContinueOnFailure lets the following steps run after this one fails
	ContinueOnFailure bool `json:"continueOnFailure,omitempty"`
}

// IsSQL reports whether the step runs as a statement on the live connection
func (s Step) IsSQL() bool {
	return s.Kind == KindSQL
}

// Process creates a process step
func Process(program string, args []string, env Env) Step {
	return Step{Kind: KindProcess, MainCommand: program, Options: args, Env: env}
}

// SQL creates a statement step
func SQL(statement string) Step {
	return Step{Kind: KindSQL, MainCommand: statement}
}

// secretEnv lists variables whose values are masked in display output
var secretEnv = map[string]bool{
	"PGPASSWORD":        true,
	"MYSQL_PWD":         true,
	"SQLCMDPASSWORD":    true,
	"MSSQL_SA_PASSWORD": true,
}

// String renders the step the way it would be typed in a shell, with secrets masked
func (s Step) String() string {
	if s.IsSQL() {
		return s.MainCommand
	}
	var parts []string
	for _, name := range s.Env.Names() {
		v, ok := s.Env.Lookup(name)
		if !ok {
			continue
		}
		if secretEnv[name] {
			v = "redacted"
		}
		parts = append(parts, shellquote.Join(name+"="+v))
	}
	parts = append(parts, shellquote.Join(append([]string{s.MainCommand}, s.Options...)...))
	return strings.Join(parts, " ")
}

// Command is an ordered chain of steps. Steps run strictly in order and a
// failed step stops the chain unless it is marked ContinueOnFailure.
type Command struct {
	Steps []Step `json:"steps"`
}

// New creates a command from steps
func New(steps ...Step) Command {
	return Command{Steps: steps}
}

// Then returns a copy of c with step appended
func (c Command) Then(step Step) Command {
	steps := make([]Step, 0, len(c.Steps)+1)
	steps = append(steps, c.Steps...)
	return Command{Steps: append(steps, step)}
}

// Empty reports whether the command has no steps
func (c Command) Empty() bool {
	return len(c.Steps) == 0
}

// Primary returns the first step
func (c Command) Primary() Step {
	if c.Empty() {
		return Step{}
	}
	return c.Steps[0]
}

// MainCommand returns the program or statement of the first step
func (c Command) MainCommand() string { return c.Primary().MainCommand }

// Options returns the arguments of the first step
func (c Command) Options() []string { return c.Primary().Options }

// Env returns the environment of the first step
func (c Command) Env() Env { return c.Primary().Env }

// IsSQL reports whether the first step is a statement
func (c Command) IsSQL() bool { return c.Primary().IsSQL() }

// Post returns the steps that follow the first one, or nil when there are none
func (c Command) Post() *Command {
	if len(c.Steps) < 2 {
		return nil
	}
	return &Command{Steps: c.Steps[1:]}
}

// Clone returns a deep copy
func (c Command) Clone() Command {
	steps := make([]Step, len(c.Steps))
	for i, s := range c.Steps {
		s.Options = append([]string(nil), s.Options...)
		s.Env = s.Env.clone()
		steps[i] = s
	}
	return Command{Steps: steps}
}

// String renders all steps joined by "&&"
func (c Command) String() string {
	parts := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, " && ")
}
