package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/ganot/hourbank/internal/domain/project"
	"gopkg.in/yaml.v3"
)

// StateDef describes one status and its outgoing edges.
type StateDef struct {
	Name            project.Status   `yaml:"name" json:"name"`
	Entry           bool             `yaml:"entry" json:"entry"`
	Terminal        bool             `yaml:"terminal" json:"terminal"`
	RequiresReason  bool             `yaml:"requires_reason" json:"requiresReason"`
	AcceptsRequests bool             `yaml:"accepts_requests" json:"acceptsRequests"`
	Next            []project.Status `yaml:"next" json:"next"`
	// Reactivate lists edges from a terminal status back into an
	// operational one. Terminal statuses may not reach operational
	// statuses any other way.
	Reactivate []project.Status `yaml:"reactivate,omitempty" json:"reactivate,omitempty"`
}

// DefaultStates is the built-in edge table.
func DefaultStates() []StateDef {
	return []StateDef{
		{
			Name:  project.StatusPending,
			Entry: true,
			Next:  []project.Status{project.StatusActive, project.StatusCancelled},
		},
		{
			Name:            project.StatusActive,
			Entry:           true,
			AcceptsRequests: true,
			Next: []project.Status{
				project.StatusOnHold,
				project.StatusSuspended,
				project.StatusCompleted,
				project.StatusCancelled,
				project.StatusExpired,
			},
		},
		{
			Name:           project.StatusOnHold,
			RequiresReason: true,
			Next:           []project.Status{project.StatusActive, project.StatusCancelled},
		},
		{
			Name:           project.StatusSuspended,
			RequiresReason: true,
			Next:           []project.Status{project.StatusActive, project.StatusCancelled},
		},
		{
			Name:     project.StatusCompleted,
			Terminal: true,
			Next:     []project.Status{project.StatusArchived},
		},
		{
			Name:           project.StatusCancelled,
			Terminal:       true,
			RequiresReason: true,
			Next:           []project.Status{project.StatusArchived},
		},
		{
			Name:       project.StatusExpired,
			Terminal:   true,
			Next:       []project.Status{project.StatusArchived},
			Reactivate: []project.Status{project.StatusActive},
		},
		{
			Name:     project.StatusArchived,
			Terminal: true,
		},
	}
}

type stateFile struct {
	Statuses []StateDef `yaml:"statuses"`
}

// LoadStates reads an edge table from a YAML file of the form
// `statuses: [{name, entry, terminal, requires_reason, accepts_requests, next, reactivate}]`.
func LoadStates(path string) ([]StateDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lifecycle table: %w", err)
	}
	var file stateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse lifecycle table: %w", err)
	}
	return file.Statuses, nil
}

type rule struct {
	def  StateDef
	next []project.Status
}

// Machine is an immutable status state machine built from an edge table.
type Machine struct {
	order  []project.Status
	states map[project.Status]rule
}

// NewMachine validates defs and builds a machine from them.
func NewMachine(defs []StateDef) (*Machine, error) {
	if len(defs) == 0 {
		return nil, errors.New("lifecycle table has no statuses")
	}

	m := &Machine{states: make(map[project.Status]rule, len(defs))}
	for _, def := range defs {
		name := project.Status(strings.TrimSpace(string(def.Name)))
		if name == "" {
			return nil, errors.New("lifecycle status with empty name")
		}
		if _, dup := m.states[name]; dup {
			return nil, fmt.Errorf("lifecycle status %q declared twice", name)
		}
		def.Name = name
		def.Next = slices.Clone(def.Next)
		def.Reactivate = slices.Clone(def.Reactivate)
		m.order = append(m.order, name)
		m.states[name] = rule{def: def, next: append(slices.Clone(def.Next), def.Reactivate...)}
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// MustDefault returns the machine for DefaultStates.
func MustDefault() *Machine {
	m, err := NewMachine(DefaultStates())
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Machine) validate() error {
	var entries []project.Status
	for _, name := range m.order {
		r := m.states[name]
		if r.def.Entry {
			entries = append(entries, name)
		}
		seen := make(map[project.Status]bool, len(r.next))
		for _, target := range r.next {
			to, ok := m.states[target]
			if !ok {
				return fmt.Errorf("status %q has edge to unknown status %q", name, target)
			}
			if target == name {
				return fmt.Errorf("status %q has an edge to itself", name)
			}
			if seen[target] {
				return fmt.Errorf("status %q lists %q more than once", name, target)
			}
			seen[target] = true
			if r.def.Terminal && !to.def.Terminal && !slices.Contains(r.def.Reactivate, target) {
				return fmt.Errorf("terminal status %q reaches operational status %q without a reactivate edge", name, target)
			}
		}
		for _, target := range r.def.Reactivate {
			if !r.def.Terminal {
				return fmt.Errorf("status %q is not terminal but declares reactivate edges", name)
			}
			if m.states[target].def.Terminal {
				return fmt.Errorf("reactivate edge %q -> %q must target an operational status", name, target)
			}
		}
	}
	if len(entries) == 0 {
		return errors.New("lifecycle table has no entry status")
	}

	reached := make(map[project.Status]bool, len(m.order))
	queue := slices.Clone(entries)
	for _, e := range entries {
		reached[e] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, target := range m.states[cur].next {
			if !reached[target] {
				reached[target] = true
				queue = append(queue, target)
			}
		}
	}
	for _, name := range m.order {
		if !reached[name] {
			return fmt.Errorf("status %q is unreachable from the entry statuses", name)
		}
	}
	return nil
}

// States returns all statuses in declaration order.
func (m *Machine) States() []project.Status {
	return slices.Clone(m.order)
}

// Defs returns a copy of the edge table.
func (m *Machine) Defs() []StateDef {
	defs := make([]StateDef, 0, len(m.order))
	for _, name := range m.order {
		def := m.states[name].def
		def.Next = slices.Clone(def.Next)
		def.Reactivate = slices.Clone(def.Reactivate)
		defs = append(defs, def)
	}
	return defs
}

// IsKnown reports whether s is a declared status.
func (m *Machine) IsKnown(s project.Status) bool {
	_, ok := m.states[s]
	return ok
}

// ValidNextStates returns the statuses reachable from s in one transition.
func (m *Machine) ValidNextStates(s project.Status) []project.Status {
	r, ok := m.states[s]
	if !ok {
		return []project.Status{}
	}
	return slices.Clone(r.next)
}

// CanTransition reports whether from -> to is an edge.
func (m *Machine) CanTransition(from, to project.Status) bool {
	r, ok := m.states[from]
	return ok && slices.Contains(r.next, to)
}

// RequiresReason reports whether entering s requires a reason.
func (m *Machine) RequiresReason(s project.Status) bool {
	return m.states[s].def.RequiresReason
}

// AcceptsRequests reports whether projects in s take new work requests.
func (m *Machine) AcceptsRequests(s project.Status) bool {
	return m.states[s].def.AcceptsRequests
}

// IsTerminal reports whether s is a terminal status.
func (m *Machine) IsTerminal(s project.Status) bool {
	return m.states[s].def.Terminal
}

// IsEntry reports whether projects may be created in s.
func (m *Machine) IsEntry(s project.Status) bool {
	return m.states[s].def.Entry
}

// ReasonRequired filters statuses down to those requiring a reason.
func (m *Machine) ReasonRequired(statuses []project.Status) []project.Status {
	out := []project.Status{}
	for _, s := range statuses {
		if m.RequiresReason(s) {
			out = append(out, s)
		}
	}
	return out
}
