package service

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/aligner-portal/internal/model"
)

type CategoryService struct {
	cats CategoryStore
	gate *Gate
}

func NewCategoryService(cats CategoryStore, gate *Gate) *CategoryService {
	return &CategoryService{cats: cats, gate: gate}
}

// Create adds a category. A duplicate name fails with ErrConflict.
func (s *CategoryService) Create(ctx context.Context, a Actor, name string) (model.CaseCategory, error) {
	if _, err := s.gate.RequireCapability(ctx, a, 0); err != nil {
		return model.CaseCategory{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.CaseCategory{}, invalid("category is required")
	}
	c := model.CaseCategory{Category: name, CreatedAt: time.Now().UTC()}
	if err := s.cats.Create(ctx, &c); err != nil {
		return model.CaseCategory{}, err
	}
	return c, nil
}

func (s *CategoryService) List(ctx context.Context) ([]model.CaseCategory, error) {
	return s.cats.List(ctx)
}

func (s *CategoryService) Delete(ctx context.Context, a Actor, id primitive.ObjectID) error {
	if _, err := s.gate.RequireCapability(ctx, a, 0); err != nil {
		return err
	}
	return s.cats.Delete(ctx, id)
}
