package service

import (
	"context"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/apperr"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/store"
)

type SportService struct {
	sportStore *store.SportStore
	assetStore *store.AssetStore
}

func NewSportService(sportStore *store.SportStore, assetStore *store.AssetStore) *SportService {
	return &SportService{sportStore: sportStore, assetStore: assetStore}
}

func (s *SportService) List(ctx context.Context) ([]*models.Sport, error) {
	return s.sportStore.ListSports(ctx)
}

func (s *SportService) Get(ctx context.Context, key string) (*models.Sport, error) {
	sport, err := s.sportStore.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if sport == nil {
		return nil, apperr.NotFound("sport %s not found", key)
	}
	return sport, nil
}

// Assets lists the biddable pool for a sport.
func (s *SportService) Assets(ctx context.Context, key string) ([]*models.Asset, error) {
	if _, err := s.Get(ctx, key); err != nil {
		return nil, err
	}
	return s.assetStore.ListBySport(ctx, key)
}
