package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NodeType enumerates the kinds of network points. The Greek names are the
// field crew's vocabulary for fittings and are stored verbatim.
type NodeType string

const (
	NodeSource     NodeType = "source"
	NodeJunction   NodeType = "junction"
	NodeOutlet     NodeType = "outlet"
	NodeReservoir  NodeType = "reservoir"
	NodeValve      NodeType = "Κλειδί"
	NodeHydrant    NodeType = "Πυροσβεστικός Κρουνός"
	NodeTee        NodeType = "Ταφ"
	NodeElbow      NodeType = "Γωνία"
	NodeManifold   NodeType = "Κολεκτέρ"
	NodeServiceTap NodeType = "Παροχή"
)

// NodeTypes lists every accepted node type.
var NodeTypes = []NodeType{
	NodeSource, NodeJunction, NodeOutlet, NodeReservoir,
	NodeValve, NodeHydrant, NodeTee, NodeElbow, NodeManifold, NodeServiceTap,
}

// NodeStatus is the operational state of a node.
type NodeStatus string

const (
	NodeActive      NodeStatus = "active"
	NodeMaintenance NodeStatus = "maintenance"
	NodeInactive    NodeStatus = "inactive"
)

// Location is a WGS84 point. Columns are stored flat on the nodes table.
type Location struct {
	Latitude  float64 `json:"latitude" gorm:"column:latitude;not null;index"`
	Longitude float64 `json:"longitude" gorm:"column:longitude;not null;index"`
}

// Node is a point entity of the network: a source, junction, outlet,
// reservoir or fitting.
type Node struct {
	ID          string     `json:"id" gorm:"primaryKey;type:char(36)"`
	Name        string     `json:"name" gorm:"size:255;not null;index"`
	Type        NodeType   `json:"type" gorm:"size:64;not null;index"`
	Location    Location   `json:"location" gorm:"embedded"`
	Capacity    *float64   `json:"capacity"`
	Status      NodeStatus `json:"status" gorm:"size:16;not null;index"`
	Description string     `json:"description" gorm:"type:text"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (n *Node) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
