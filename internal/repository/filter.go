package repository

import (
	"strings"

	"gorm.io/gorm"
)

// Clause is one independent WHERE predicate. Filters build a list of clauses,
// one per supplied parameter, and the list is ANDed together.
type Clause struct {
	Query string
	Args  []any
}

func apply(db *gorm.DB, clauses []Clause) *gorm.DB {
	for _, c := range clauses {
		db = db.Where(c.Query, c.Args...)
	}
	return db
}

func rangeClauses(column string, min, max *float64) []Clause {
	var out []Clause
	if min != nil {
		out = append(out, Clause{Query: column + " >= ?", Args: []any{*min}})
	}
	if max != nil {
		out = append(out, Clause{Query: column + " <= ?", Args: []any{*max}})
	}
	return out
}

// likeEscaper escapes LIKE wildcards using '!' which both MySQL and SQLite
// accept as an ESCAPE character.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func containsFold(column, needle string) Clause {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(needle)) + "%"
	return Clause{Query: "LOWER(" + column + ") LIKE ? ESCAPE '!'", Args: []any{pattern}}
}

// NodeFilter holds the optional node search parameters. Zero values impose
// no constraint.
type NodeFilter struct {
	Types        []string
	MinLatitude  *float64
	MaxLatitude  *float64
	MinLongitude *float64
	MaxLongitude *float64
	MinCapacity  *float64
	MaxCapacity  *float64
	Status       string
	Name         string
}

// Clauses returns the predicates for the parameters that are set.
func (f NodeFilter) Clauses() []Clause {
	var out []Clause
	if len(f.Types) > 0 {
		out = append(out, Clause{Query: "type IN ?", Args: []any{f.Types}})
	}
	out = append(out, rangeClauses("latitude", f.MinLatitude, f.MaxLatitude)...)
	out = append(out, rangeClauses("longitude", f.MinLongitude, f.MaxLongitude)...)
	out = append(out, rangeClauses("capacity", f.MinCapacity, f.MaxCapacity)...)
	if f.Status != "" {
		out = append(out, Clause{Query: "status = ?", Args: []any{f.Status}})
	}
	if f.Name != "" {
		out = append(out, containsFold("name", f.Name))
	}
	return out
}

// PipeFilter holds the optional pipe search parameters.
type PipeFilter struct {
	Status    string
	Kind      string
	MinFlow   *float64
	MaxFlow   *float64
	MinLength *float64
	MaxLength *float64
}

func (f PipeFilter) Clauses() []Clause {
	var out []Clause
	if f.Status != "" {
		out = append(out, Clause{Query: "status = ?", Args: []any{f.Status}})
	}
	if f.Kind != "" {
		out = append(out, Clause{Query: "kind = ?", Args: []any{f.Kind}})
	}
	out = append(out, rangeClauses("flow", f.MinFlow, f.MaxFlow)...)
	out = append(out, rangeClauses("length", f.MinLength, f.MaxLength)...)
	return out
}
