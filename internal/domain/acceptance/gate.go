package acceptance

import (
	"context"
	"fmt"
	"strings"

	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/shopspring/decimal"
)

// ExhaustedPolicy decides what zero available hours means for acceptance.
type ExhaustedPolicy string

const (
	// PolicyWarn accepts requests on an exhausted budget but attaches a warning.
	PolicyWarn ExhaustedPolicy = "warn"
	// PolicyBlock refuses requests once the budget is exhausted.
	PolicyBlock ExhaustedPolicy = "block"
)

// ParsePolicy validates a policy name. Empty means PolicyWarn.
func ParsePolicy(s string) (ExhaustedPolicy, error) {
	switch ExhaustedPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyWarn:
		return PolicyWarn, nil
	case PolicyBlock:
		return PolicyBlock, nil
	default:
		return "", fmt.Errorf("unknown exhausted-hours policy %q (want warn or block)", s)
	}
}

// ProjectReader loads projects.
type ProjectReader interface {
	Get(ctx context.Context, id string) (*project.Project, error)
}

// StatusRules answers which statuses accept requests.
type StatusRules interface {
	AcceptsRequests(s project.Status) bool
}

// Decision is the gate's answer for one project.
type Decision struct {
	CanAccept      bool            `json:"canAccept"`
	Reason         string          `json:"reason,omitempty"`
	Warning        string          `json:"warning,omitempty"`
	AvailableHours decimal.Decimal `json:"availableHours"`
}

// Gate derives whether a project may take new work requests. It never writes.
type Gate struct {
	projects ProjectReader
	rules    StatusRules
	policy   ExhaustedPolicy
}

// NewGate creates a new acceptance gate.
func NewGate(projects ProjectReader, rules StatusRules, policy ExhaustedPolicy) *Gate {
	if policy == "" {
		policy = PolicyWarn
	}
	return &Gate{projects: projects, rules: rules, policy: policy}
}

// CanAcceptRequests loads the project and evaluates it.
func (g *Gate) CanAcceptRequests(ctx context.Context, projectID string) (*Decision, error) {
	proj, err := g.projects.Get(ctx, projectID)
	if err != nil {
		return nil, project.StoreError(projectID, err)
	}
	d := g.Evaluate(proj)
	return &d, nil
}

// Evaluate applies the gate to an already loaded project.
func (g *Gate) Evaluate(proj *project.Project) Decision {
	available := proj.AvailableHours()
	if !g.rules.AcceptsRequests(proj.Status) {
		return Decision{
			CanAccept:      false,
			Reason:         fmt.Sprintf("Project is %s", strings.ToLower(proj.Status.String())),
			AvailableHours: available,
		}
	}
	if available.IsPositive() {
		return Decision{CanAccept: true, AvailableHours: available}
	}
	if g.policy == PolicyBlock {
		return Decision{
			CanAccept:      false,
			Reason:         "Project has no available hours",
			AvailableHours: available,
		}
	}
	return Decision{
		CanAccept:      true,
		Warning:        "Project has no available hours; new requests will need a budget extension",
		AvailableHours: available,
	}
}
