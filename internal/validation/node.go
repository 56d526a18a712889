// Package validation is the one place where write payloads for users, nodes
// and pipes are checked. Every create and update path goes through it before
// touching the store, so the geographic bounds and enum rules cannot drift
// between handlers.
package validation

import (
	"strings"

	"github.com/iliyamo/water-network-api/internal/apperr"
	"github.com/iliyamo/water-network-api/internal/model"
)

// Corfu island bounding box.
const (
	MinLatitude  = 38.5
	MaxLatitude  = 39.8
	MinLongitude = 19.3
	MaxLongitude = 20.3
)

const msgOutOfBounds = "Node location must be within Corfu Island bounds"

// LocationInput is the location part of a node payload.
type LocationInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// NodeInput is the create/update payload for a node. Nil fields were not
// supplied by the client, except that "capacity": null clears the capacity
// on update.
type NodeInput struct {
	Name        *string        `json:"name"`
	Type        *string        `json:"type"`
	Location    *LocationInput `json:"location"`
	Capacity    *float64       `json:"capacity"`
	Status      *string        `json:"status"`
	Description *string        `json:"description"`

	nulls nullFields
}

// CheckBounds fails with ValidationFailed when the point is outside the
// service area.
func CheckBounds(lat, lon float64) error {
	if lat < MinLatitude || lat > MaxLatitude || lon < MinLongitude || lon > MaxLongitude {
		return apperr.ValidationFailed(msgOutOfBounds)
	}
	return nil
}

// IsNodeType reports whether s is one of model.NodeTypes.
func IsNodeType(s string) bool {
	for _, t := range model.NodeTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

// IsNodeStatus reports whether s is a known node status.
func IsNodeStatus(s string) bool {
	switch model.NodeStatus(s) {
	case model.NodeActive, model.NodeMaintenance, model.NodeInactive:
		return true
	}
	return false
}

func location(in *LocationInput) (model.Location, error) {
	if in == nil || in.Latitude == nil || in.Longitude == nil {
		return model.Location{}, apperr.ValidationFailed("Node location requires latitude and longitude")
	}
	if err := CheckBounds(*in.Latitude, *in.Longitude); err != nil {
		return model.Location{}, err
	}
	return model.Location{Latitude: *in.Latitude, Longitude: *in.Longitude}, nil
}

func capacity(v *float64) error {
	if v != nil && *v < 0 {
		return apperr.ValidationFailed("Node capacity must not be negative")
	}
	return nil
}

// NewNode validates a create payload and returns the node to insert. A
// missing or blank status defaults to active.
func NewNode(in NodeInput) (model.Node, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return model.Node{}, apperr.ValidationFailed("Node name is required")
	}
	if in.Type == nil || !IsNodeType(*in.Type) {
		return model.Node{}, apperr.ValidationFailed("Node type is missing or not supported")
	}
	loc, err := location(in.Location)
	if err != nil {
		return model.Node{}, err
	}
	if err := capacity(in.Capacity); err != nil {
		return model.Node{}, err
	}

	status := model.NodeActive
	if in.Status != nil && strings.TrimSpace(*in.Status) != "" {
		if !IsNodeStatus(*in.Status) {
			return model.Node{}, apperr.ValidationFailed("Node status must be one of active, maintenance, inactive")
		}
		status = model.NodeStatus(*in.Status)
	}

	n := model.Node{
		Name:     strings.TrimSpace(*in.Name),
		Type:     model.NodeType(*in.Type),
		Location: loc,
		Capacity: in.Capacity,
		Status:   status,
	}
	if in.Description != nil {
		n.Description = *in.Description
	}
	return n, nil
}

// NodeChanges validates an update payload against the current node and
// returns the columns whose value actually changes. An empty map means the
// update is a no-op.
func NodeChanges(cur model.Node, in NodeInput) (map[string]any, error) {
	changes := map[string]any{}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.ValidationFailed("Node name must not be empty")
		}
		if name != cur.Name {
			changes["name"] = name
		}
	}
	if in.Type != nil {
		if !IsNodeType(*in.Type) {
			return nil, apperr.ValidationFailed("Node type is not supported")
		}
		if model.NodeType(*in.Type) != cur.Type {
			changes["type"] = *in.Type
		}
	}
	if in.Location != nil {
		loc, err := location(in.Location)
		if err != nil {
			return nil, err
		}
		if loc.Latitude != cur.Location.Latitude {
			changes["latitude"] = loc.Latitude
		}
		if loc.Longitude != cur.Location.Longitude {
			changes["longitude"] = loc.Longitude
		}
	}
	switch {
	case in.Capacity != nil:
		if err := capacity(in.Capacity); err != nil {
			return nil, err
		}
		if cur.Capacity == nil || *cur.Capacity != *in.Capacity {
			changes["capacity"] = *in.Capacity
		}
	case in.nulls["capacity"] && cur.Capacity != nil:
		changes["capacity"] = nil
	}
	if in.Status != nil {
		if !IsNodeStatus(*in.Status) {
			return nil, apperr.ValidationFailed("Node status must be one of active, maintenance, inactive")
		}
		if model.NodeStatus(*in.Status) != cur.Status {
			changes["status"] = *in.Status
		}
	}
	if in.Description != nil && *in.Description != cur.Description {
		changes["description"] = *in.Description
	}
	return changes, nil
}
