package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/iliyamo/water-network-api/internal/model"
)

// PipeRepo persists pipes of both kinds.
type PipeRepo struct {
	db *gorm.DB
}

func NewPipeRepo(db *gorm.DB) *PipeRepo { return &PipeRepo{db: db} }

func (r *PipeRepo) Create(ctx context.Context, p *model.Pipe) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PipeRepo) GetByID(ctx context.Context, id string) (*model.Pipe, error) {
	var p model.Pipe
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// Search returns the pipes matching every clause of f.
func (r *PipeRepo) Search(ctx context.Context, f PipeFilter) ([]model.Pipe, error) {
	out := []model.Pipe{}
	q := apply(r.db.WithContext(ctx).Model(&model.Pipe{}), f.Clauses())
	if err := q.Order("created_at, id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ReferencingNode returns the ids of pipes that use the node as start or
// end point.
func (r *PipeRepo) ReferencingNode(ctx context.Context, nodeID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&model.Pipe{}).
		Where("start_node = ? OR end_node = ?", nodeID, nodeID).
		Order("created_at, id").
		Pluck("id", &ids).Error
	return ids, err
}

// Update writes the changed columns and returns the stored pipe.
func (r *PipeRepo) Update(ctx context.Context, id string, changes map[string]any) (*model.Pipe, error) {
	if len(changes) > 0 {
		changes["updated_at"] = time.Now().UTC()
		res := r.db.WithContext(ctx).Model(&model.Pipe{}).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes the pipe and returns the row as it was.
func (r *PipeRepo) Delete(ctx context.Context, id string) (*model.Pipe, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Pipe{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return p, nil
}
