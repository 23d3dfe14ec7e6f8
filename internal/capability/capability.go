// Package capability bundles the review machinery appropriate for one kind
// of agent output: which criteria to run, how to extract requirements from
// its requests, and how to check coverage. A Registry maps agent IDs to
// these bundles; resolution happens once when a review loop is constructed.
package capability

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/harrison/greenlight/internal/capability/markup"
	"github.com/harrison/greenlight/internal/capability/taskplan"
	"github.com/harrison/greenlight/internal/review"
)

// Set is the review capability for one agent.
type Set struct {
	Agent       string
	Description string
	Criteria    []review.Criterion
	Extractor   review.Extractor
	Coverage    review.CoverageChecker
}

// Registry maps agent IDs to capability sets. Registration happens at
// startup; lookups afterwards are read-only, so no locking is needed.
type Registry struct {
	sets map[string]*Set
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]*Set)}
}

// Builtin returns a registry preloaded with the built-in capability sets:
// task-plan review and rendered-markup review.
func Builtin() *Registry {
	r := NewRegistry()

	// Registration of the built-ins cannot fail: the sets are complete
	// and the registry is empty.
	_ = r.Register(&Set{
		Agent:       taskplan.Agent,
		Description: "structured task plans: dependency cycles, acceptance criteria, estimates",
		Criteria:    taskplan.Criteria(),
		Extractor:   taskplan.NewExtractor(),
		Coverage:    taskplan.NewCoverage(),
	})
	_ = r.Register(&Set{
		Agent:       markup.Agent,
		Description: "rendered HTML: image alt text, control labels, heading order",
		Criteria:    markup.Criteria(),
		Extractor:   markup.NewExtractor(),
		Coverage:    markup.NewCoverage(),
	})

	return r
}

// Register adds a capability set. Incomplete sets and duplicate agent IDs
// are rejected.
func (r *Registry) Register(set *Set) error {
	if set == nil {
		return errors.New("capability set is required")
	}
	if set.Agent == "" {
		return errors.New("capability set requires an agent id")
	}
	if set.Extractor == nil {
		return fmt.Errorf("capability set %s requires an extractor", set.Agent)
	}
	if set.Coverage == nil {
		return fmt.Errorf("capability set %s requires a coverage checker", set.Agent)
	}
	if _, exists := r.sets[set.Agent]; exists {
		return fmt.Errorf("capability set %s is already registered", set.Agent)
	}
	r.sets[set.Agent] = set
	return nil
}

// Get resolves the capability set for an agent. The error for an unknown
// agent lists what is registered.
func (r *Registry) Get(agent string) (*Set, error) {
	set, ok := r.sets[agent]
	if !ok {
		available := r.Agents()
		if len(available) == 0 {
			return nil, fmt.Errorf("no capability set registered for agent %q", agent)
		}
		return nil, fmt.Errorf("no capability set registered for agent %q (available: %s)",
			agent, strings.Join(available, ", "))
	}
	return set, nil
}

// Agents returns the registered agent IDs, sorted.
func (r *Registry) Agents() []string {
	agents := make([]string, 0, len(r.sets))
	for agent := range r.sets {
		agents = append(agents, agent)
	}
	sort.Strings(agents)
	return agents
}
