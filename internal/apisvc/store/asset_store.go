package store

import (
	"context"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AssetStore struct {
	db *pgxpool.Pool
}

func NewAssetStore(db *pgxpool.Pool) *AssetStore {
	return &AssetStore{db: db}
}

func scanAsset(row pgx.Row) (*models.Asset, error) {
	a := &models.Asset{}
	err := row.Scan(
		&a.ID,
		&a.SportKey,
		&a.Name,
		&a.UefaID,
		&a.Country,
		&a.ExternalID,
		&a.Meta.Franchise,
		&a.Meta.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

const assetColumns = `
	id, sport_key, name,
	COALESCE(uefa_id, ''), COALESCE(country, ''),
	COALESCE(external_id, ''), COALESCE(franchise, ''), COALESCE(role, ''),
	created_at, updated_at`

func (s *AssetStore) ListBySport(ctx context.Context, sportKey string) ([]*models.Asset, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE sport_key = $1
		ORDER BY id
	`, sportKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAssets(rows)
}

func (s *AssetStore) GetByIDs(ctx context.Context, ids []int64) ([]*models.Asset, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAssets(rows)
}

func (s *AssetStore) GetByExternalIDs(ctx context.Context, sportKey string, externalIDs []string) (map[string]*models.Asset, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE sport_key = $1 AND external_id = ANY($2)
	`, sportKey, externalIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets, err := collectAssets(rows)
	if err != nil {
		return nil, err
	}

	byExternal := make(map[string]*models.Asset, len(assets))
	for _, a := range assets {
		byExternal[a.ExternalID] = a
	}
	return byExternal, nil
}

func collectAssets(rows pgx.Rows) ([]*models.Asset, error) {
	var assets []*models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
