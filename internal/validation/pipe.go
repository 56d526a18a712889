package validation

import (
	"strings"

	"github.com/iliyamo/water-network-api/internal/apperr"
	"github.com/iliyamo/water-network-api/internal/model"
)

const (
	msgTwoCoordinates = "At least two coordinates are required."
	msgFlowDirection  = "Invalid flow direction. Must be 0 or 1."
)

// PipeInput is the create/update payload for a pipe. Coordinates is a
// pointer so an explicit empty list can be told apart from an absent one.
// On update, an explicit null clears length, diameter or material.
type PipeInput struct {
	StartNode   *string             `json:"startNode"`
	EndNode     *string             `json:"endNode"`
	Coordinates *[]model.Coordinate `json:"coordinates"`
	Status      *string             `json:"status"`
	Flow        *float64            `json:"flow"`
	Length      *float64            `json:"length"`
	Diameter    *float64            `json:"diameter"`
	Material    *string             `json:"material"`

	nulls nullFields
}

// IsPipeStatus reports whether s is a known pipe status.
func IsPipeStatus(s string) bool {
	switch model.PipeStatus(s) {
	case model.PipeNormal, model.PipeHigh, model.PipeBlocked, model.PipeMaintenance:
		return true
	}
	return false
}

// PipeKindOf infers the representation a create payload asks for.
func PipeKindOf(in PipeInput) (model.PipeKind, error) {
	geometric := in.Coordinates != nil
	referential := in.StartNode != nil || in.EndNode != nil
	switch {
	case geometric && referential:
		return "", apperr.ValidationFailed("A pipe is defined either by startNode/endNode or by coordinates, not both")
	case geometric:
		return model.PipeGeometric, nil
	case referential:
		return model.PipeReferential, nil
	default:
		return "", apperr.ValidationFailed("Either startNode and endNode or coordinates are required")
	}
}

func coordinates(c *[]model.Coordinate) (model.Coordinates, error) {
	if c == nil || len(*c) < 2 {
		return nil, apperr.ValidationFailed(msgTwoCoordinates)
	}
	return model.Coordinates(*c), nil
}

func flowDirection(f *float64) error {
	if f == nil || (*f != 0 && *f != 1) {
		return apperr.ValidationFailed(msgFlowDirection)
	}
	return nil
}

func nodeRef(name string, v *string) (string, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", apperr.ValidationFailed(name + " is required")
	}
	return strings.TrimSpace(*v), nil
}

func dimensions(in PipeInput) error {
	if in.Length != nil && *in.Length < 0 {
		return apperr.ValidationFailed("Pipe length must not be negative")
	}
	if in.Diameter != nil && *in.Diameter < 0 {
		return apperr.ValidationFailed("Pipe diameter must not be negative")
	}
	return nil
}

// NewPipe validates a create payload. Geometric pipes need two or more
// coordinates and an explicit flow of 0 or 1. Referential pipes need both
// node ids; their existence is checked by the caller against the store.
func NewPipe(in PipeInput) (model.Pipe, error) {
	kind, err := PipeKindOf(in)
	if err != nil {
		return model.Pipe{}, err
	}
	if err := dimensions(in); err != nil {
		return model.Pipe{}, err
	}

	p := model.Pipe{
		Kind:     kind,
		Status:   model.PipeNormal,
		Length:   in.Length,
		Diameter: in.Diameter,
		Material: in.Material,
	}
	if in.Status != nil && strings.TrimSpace(*in.Status) != "" {
		if !IsPipeStatus(*in.Status) {
			return model.Pipe{}, apperr.ValidationFailed("Pipe status must be one of normal, high, blocked, maintenance")
		}
		p.Status = model.PipeStatus(*in.Status)
	}

	switch kind {
	case model.PipeGeometric:
		coords, err := coordinates(in.Coordinates)
		if err != nil {
			return model.Pipe{}, err
		}
		if err := flowDirection(in.Flow); err != nil {
			return model.Pipe{}, err
		}
		p.Coordinates = coords
		p.Flow = *in.Flow
	case model.PipeReferential:
		start, err := nodeRef("startNode", in.StartNode)
		if err != nil {
			return model.Pipe{}, err
		}
		end, err := nodeRef("endNode", in.EndNode)
		if err != nil {
			return model.Pipe{}, err
		}
		p.StartNodeID, p.EndNodeID = &start, &end
		if in.Flow != nil {
			p.Flow = *in.Flow
		}
	}
	return p, nil
}

// PipeChanges validates an update payload against the current pipe and
// returns the changed columns. Fields belonging to the other representation
// are rejected since the kind of a pipe is fixed at creation.
func PipeChanges(cur model.Pipe, in PipeInput) (map[string]any, error) {
	if err := dimensions(in); err != nil {
		return nil, err
	}
	changes := map[string]any{}

	switch cur.Kind {
	case model.PipeGeometric:
		if in.StartNode != nil || in.EndNode != nil {
			return nil, apperr.ValidationFailed("startNode/endNode cannot be set on a geometric pipe")
		}
		if in.Coordinates != nil {
			coords, err := coordinates(in.Coordinates)
			if err != nil {
				return nil, err
			}
			if !sameCoordinates(coords, cur.Coordinates) {
				changes["coordinates"] = coords
			}
		}
		if in.Flow != nil {
			if err := flowDirection(in.Flow); err != nil {
				return nil, err
			}
		}
	case model.PipeReferential:
		if in.Coordinates != nil {
			return nil, apperr.ValidationFailed("coordinates cannot be set on a node-referential pipe")
		}
		if in.StartNode != nil {
			start, err := nodeRef("startNode", in.StartNode)
			if err != nil {
				return nil, err
			}
			if cur.StartNodeID == nil || *cur.StartNodeID != start {
				changes["start_node"] = start
			}
		}
		if in.EndNode != nil {
			end, err := nodeRef("endNode", in.EndNode)
			if err != nil {
				return nil, err
			}
			if cur.EndNodeID == nil || *cur.EndNodeID != end {
				changes["end_node"] = end
			}
		}
	}

	if in.Flow != nil && *in.Flow != cur.Flow {
		changes["flow"] = *in.Flow
	}
	if in.Status != nil {
		if !IsPipeStatus(*in.Status) {
			return nil, apperr.ValidationFailed("Pipe status must be one of normal, high, blocked, maintenance")
		}
		if model.PipeStatus(*in.Status) != cur.Status {
			changes["status"] = *in.Status
		}
	}
	if in.Length != nil && !sameFloat(cur.Length, *in.Length) {
		changes["length"] = *in.Length
	}
	if in.Diameter != nil && !sameFloat(cur.Diameter, *in.Diameter) {
		changes["diameter"] = *in.Diameter
	}
	if in.Material != nil && (cur.Material == nil || *cur.Material != *in.Material) {
		changes["material"] = *in.Material
	}
	if in.nulls["length"] && in.Length == nil && cur.Length != nil {
		changes["length"] = nil
	}
	if in.nulls["diameter"] && in.Diameter == nil && cur.Diameter != nil {
		changes["diameter"] = nil
	}
	if in.nulls["material"] && in.Material == nil && cur.Material != nil {
		changes["material"] = nil
	}
	return changes, nil
}

func sameFloat(cur *float64, v float64) bool { return cur != nil && *cur == v }

func sameCoordinates(a, b model.Coordinates) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
