package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PipeKind discriminates the two pipe representations.
type PipeKind string

const (
	// PipeReferential pipes connect two existing nodes.
	PipeReferential PipeKind = "referential"
	// PipeGeometric pipes are freeform polylines with no node references.
	PipeGeometric PipeKind = "geometric"
)

// PipeStatus describes the observed condition of a pipe.
type PipeStatus string

const (
	PipeNormal      PipeStatus = "normal"
	PipeHigh        PipeStatus = "high"
	PipeBlocked     PipeStatus = "blocked"
	PipeMaintenance PipeStatus = "maintenance"
)

// Coordinate is one vertex of a geometric pipe.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coordinates is stored as a JSON array in a single text column.
type Coordinates []Coordinate

// Value implements driver.Valuer. An empty polyline is stored as NULL.
func (c Coordinates) Value() (driver.Value, error) {
	if len(c) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]Coordinate(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *Coordinates) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("coordinates: unsupported column type %T", src)
	}
	if len(raw) == 0 {
		*c = nil
		return nil
	}
	var out []Coordinate
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("coordinates: %w", err)
	}
	*c = out
	return nil
}

// Pipe is a connection in the network. Kind decides which of StartNodeID /
// EndNodeID or Coordinates is populated; the other side stays empty.
type Pipe struct {
	ID          string      `json:"id" gorm:"primaryKey;type:char(36)"`
	Kind        PipeKind    `json:"kind" gorm:"size:16;not null;index"`
	StartNodeID *string     `json:"startNode,omitempty" gorm:"column:start_node;type:char(36);index"`
	EndNodeID   *string     `json:"endNode,omitempty" gorm:"column:end_node;type:char(36);index"`
	Coordinates Coordinates `json:"coordinates,omitempty" gorm:"type:text"`
	Status      PipeStatus  `json:"status" gorm:"size:16;not null;index"`
	Flow        float64     `json:"flow" gorm:"not null"`
	Length      *float64    `json:"length"`
	Diameter    *float64    `json:"diameter"`
	Material    *string     `json:"material" gorm:"size:128"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func (p *Pipe) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
