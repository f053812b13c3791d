// Package lifecycle defines the order status transition policy.
package lifecycle

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/storedeskapp/storedesk/internal/models"
)

var ErrTransitionNotAllowed = errors.New("status transition not allowed")

// TransitionPolicy decides whether an order may move between two statuses.
// The back office historically allows any transition as an administrative
// override; stricter policies can be swapped in without touching callers.
type TransitionPolicy interface {
	Allow(from, to models.OrderStatus) error
}

type allowAll struct{}

func (allowAll) Allow(models.OrderStatus, models.OrderStatus) error {
	return nil
}

// AllowAll returns the default policy: any status may follow any other.
func AllowAll() TransitionPolicy {
	return allowAll{}
}

// GraphPolicy restricts transitions to an explicit graph.
type GraphPolicy struct {
	allowed map[models.OrderStatus][]models.OrderStatus
}

type policyFile struct {
	Transitions map[string][]string `yaml:"transitions"`
}

// LoadGraphPolicy reads a YAML transition graph:
//
//	transitions:
//	  placed: [dispatched, refund-initiated]
//	  dispatched: [delivered, refund-initiated]
func LoadGraphPolicy(r io.Reader) (*GraphPolicy, error) {
	var file policyFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse transition policy: %w", err)
	}
	if len(file.Transitions) == 0 {
		return nil, fmt.Errorf("transition policy defines no transitions")
	}

	allowed := make(map[models.OrderStatus][]models.OrderStatus, len(file.Transitions))
	for from, tos := range file.Transitions {
		fromStatus, ok := models.ParseStatus(from)
		if !ok {
			return nil, fmt.Errorf("transition policy references unknown status %q", from)
		}
		next := make([]models.OrderStatus, 0, len(tos))
		for _, to := range tos {
			toStatus, ok := models.ParseStatus(to)
			if !ok {
				return nil, fmt.Errorf("transition policy references unknown status %q", to)
			}
			next = append(next, toStatus)
		}
		allowed[fromStatus] = next
	}

	return &GraphPolicy{allowed: allowed}, nil
}

// LoadGraphPolicyFile loads a transition graph from a file path.
func LoadGraphPolicyFile(path string) (*GraphPolicy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transition policy: %w", err)
	}
	defer f.Close()
	return LoadGraphPolicy(f)
}

func (p *GraphPolicy) Allow(from, to models.OrderStatus) error {
	if from == to {
		return nil
	}
	for _, candidate := range p.allowed[from] {
		if candidate == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, to)
}
