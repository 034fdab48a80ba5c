package graphstate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ritzau/storygraph/pkg/model"
)

// ChangeType is the kind of an incremental node or edge change
type ChangeType string

const (
	ChangePosition ChangeType = "position"
	ChangeSelect   ChangeType = "select"
	ChangeRemove   ChangeType = "remove"
)

// ErrInvalidChange is returned when a change batch fails validation.
// Nothing from a rejected batch is applied.
var ErrInvalidChange = errors.New("invalid change")

// NodeChange is a positional, selection or removal delta for one node.
// Changes never touch the node's data.
type NodeChange struct {
	Type     ChangeType      `json:"type" validate:"required,oneof=position select remove"`
	ID       string          `json:"id" validate:"required"`
	Position *model.Position `json:"position,omitempty" validate:"required_if=Type position"`
	Dragging *bool           `json:"dragging,omitempty"`
	Selected *bool           `json:"selected,omitempty" validate:"required_if=Type select"`
}

// EdgeChange is a selection or removal delta for one edge
type EdgeChange struct {
	Type     ChangeType `json:"type" validate:"required,oneof=select remove"`
	ID       string     `json:"id" validate:"required"`
	Selected *bool      `json:"selected,omitempty" validate:"required_if=Type select"`
}

// Connection is a user request to connect two nodes
type Connection struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

var validate = validator.New()

func validateBatch[T any](changes []T) error {
	var problems []string
	for i, change := range changes {
		if err := validate.Struct(change); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					problems = append(problems, fmt.Sprintf("change %d: %s failed %q", i, fe.Field(), fe.Tag()))
				}
				continue
			}
			return fmt.Errorf("%w: %v", ErrInvalidChange, err)
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidChange, strings.Join(problems, "; "))
	}
	return nil
}
