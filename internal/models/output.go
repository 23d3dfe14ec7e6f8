package models

import (
	"errors"
	"strings"
)

// RoutingMetadata is the envelope the review loop stamps onto an output on
// terminal decision. It is the only part of the output the loop mutates.
type RoutingMetadata struct {
	NeedsApproval bool   `yaml:"needs_approval" json:"needs_approval"`
	Notes         string `yaml:"notes" json:"notes"`
}

// WorkItem is one structured child of an agent output, e.g. a planned
// sub-task or feature in a generated breakdown.
type WorkItem struct {
	ID                 string   `yaml:"id" json:"id"`
	Title              string   `yaml:"title" json:"title"`
	Description        string   `yaml:"description" json:"description,omitempty"`
	DependsOn          []string `yaml:"depends_on" json:"depends_on,omitempty"`
	AcceptanceCriteria []string `yaml:"acceptance_criteria" json:"acceptance_criteria,omitempty"`
	Estimate           string   `yaml:"estimate" json:"estimate,omitempty"`
}

// Validate checks that the work item has the fields dependency analysis needs.
func (w *WorkItem) Validate() error {
	if w.ID == "" {
		return errors.New("work item id is required")
	}
	if w.Title == "" {
		return errors.New("work item title is required")
	}
	return nil
}

// AgentOutput is the value produced by an agent and threaded through the
// review loop. The loop inspects it only through criteria and coverage
// callbacks, and writes only the Routing envelope.
type AgentOutput struct {
	// Content is the free-text surface of the output
	Content string `yaml:"content" json:"content"`

	// Items are structured children (task plans, feature breakdowns)
	Items []WorkItem `yaml:"items" json:"items,omitempty"`

	// Markup is rendered HTML, when the agent produces any
	Markup string `yaml:"markup" json:"markup,omitempty"`

	// Routing carries the approval decision for downstream consumers
	Routing RoutingMetadata `yaml:"routing" json:"routing"`
}

// Text returns the full textual surface of the output: content, item
// titles/descriptions/acceptance criteria, and markup. Coverage checks
// match requirements against this surface.
func (o *AgentOutput) Text() string {
	if o == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(o.Content)
	for _, item := range o.Items {
		sb.WriteString("\n")
		sb.WriteString(item.Title)
		sb.WriteString("\n")
		sb.WriteString(item.Description)
		for _, ac := range item.AcceptanceCriteria {
			sb.WriteString("\n")
			sb.WriteString(ac)
		}
	}
	if o.Markup != "" {
		sb.WriteString("\n")
		sb.WriteString(o.Markup)
	}
	return sb.String()
}

// Request describes the task an agent was asked to perform, and is the
// source requirements are extracted from.
type Request struct {
	TaskID             string            `yaml:"task_id" json:"task_id"`
	AgentID            string            `yaml:"agent_id" json:"agent_id"`
	Description        string            `yaml:"description" json:"description"`
	AcceptanceCriteria []string          `yaml:"acceptance_criteria" json:"acceptance_criteria,omitempty"`
	ProjectConfig      map[string]string `yaml:"project_config" json:"project_config,omitempty"`
	DesignConstraints  []string          `yaml:"design_constraints" json:"design_constraints,omitempty"`
}

// FindDependencyCycle reports the first dependency cycle among items using
// DFS with color marking (white=unvisited, gray=visiting, black=visited)
// and an explicit recursion stack. The cycle is returned as the path from
// the revisited node back to itself, e.g. [A B C A]. Returns nil for
// acyclic graphs. Runs in O(V+E) on any graph shape, including self-loops
// and disconnected components.
func FindDependencyCycle(items []WorkItem) []string {
	graph := make(map[string][]string, len(items))
	order := make([]string, 0, len(items))
	known := make(map[string]bool, len(items))

	for _, item := range items {
		if !known[item.ID] {
			known[item.ID] = true
			order = append(order, item.ID)
		}
	}

	// Edges follow DependsOn; references to unknown items are ignored.
	for _, item := range items {
		for _, dep := range item.DependsOn {
			if known[dep] {
				graph[item.ID] = append(graph[item.ID], dep)
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)

	colors := make(map[string]int, len(known))
	var stack []string

	var dfs func(node string) []string
	dfs = func(node string) []string {
		colors[node] = gray
		stack = append(stack, node)

		for _, dep := range graph[node] {
			switch colors[dep] {
			case gray:
				// Back edge: the cycle is the stack segment from dep onward.
				for i, id := range stack {
					if id == dep {
						cycle := make([]string, 0, len(stack)-i+1)
						cycle = append(cycle, stack[i:]...)
						cycle = append(cycle, dep)
						return cycle
					}
				}
			case white:
				if cycle := dfs(dep); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[node] = black
		return nil
	}

	for _, id := range order {
		if colors[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}

	return nil
}
