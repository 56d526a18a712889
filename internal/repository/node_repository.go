package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/iliyamo/water-network-api/internal/model"
)

// NodeRepo persists network nodes.
type NodeRepo struct {
	db *gorm.DB
}

func NewNodeRepo(db *gorm.DB) *NodeRepo { return &NodeRepo{db: db} }

// Create inserts n and fills its generated id and timestamps.
func (r *NodeRepo) Create(ctx context.Context, n *model.Node) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// GetByID returns ErrNotFound when no node has the id.
func (r *NodeRepo) GetByID(ctx context.Context, id string) (*model.Node, error) {
	var n model.Node
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&n).Error; err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

// Exists reports whether a node with the id is stored.
func (r *NodeRepo) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Node{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Search returns the nodes matching every clause of f. An empty filter
// returns all nodes.
func (r *NodeRepo) Search(ctx context.Context, f NodeFilter) ([]model.Node, error) {
	out := []model.Node{}
	q := apply(r.db.WithContext(ctx).Model(&model.Node{}), f.Clauses())
	if err := q.Order("created_at, id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes the changed columns and returns the stored node. When
// changes is empty nothing is written and updated_at keeps its value.
func (r *NodeRepo) Update(ctx context.Context, id string, changes map[string]any) (*model.Node, error) {
	if len(changes) > 0 {
		changes["updated_at"] = time.Now().UTC()
		res := r.db.WithContext(ctx).Model(&model.Node{}).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes the node. Callers check pipe references first.
func (r *NodeRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Node{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
