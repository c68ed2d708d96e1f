package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sector-flow/internal/domain/taxonomy"
)

// ErrSectorNotFound 表示自訂板塊不存在。
var ErrSectorNotFound = errors.New("custom sector not found")

// SectorRepo 提供自訂板塊的 Postgres 存取，
// 同時作為 custom 分類的成分來源。
type SectorRepo struct {
	db *sql.DB
}

// NewSectorRepo 建立自訂板塊存取實例。
func NewSectorRepo(db *sql.DB) *SectorRepo {
	return &SectorRepo{db: db}
}

// CreateSector 建立自訂板塊並回傳其 id。
func (r *SectorRepo) CreateSector(ctx context.Context, sector taxonomy.CustomSector) (string, error) {
	if err := sector.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	const q = `
INSERT INTO custom_sectors (id, name, description, members, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW());
`
	if _, err := r.db.ExecContext(ctx, q, id, sector.Name, sector.Description, pq.Array(sector.Members)); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateSector 更新自訂板塊的名稱、描述與成分。
func (r *SectorRepo) UpdateSector(ctx context.Context, sector taxonomy.CustomSector) error {
	if sector.ID == "" {
		return errors.New("sector id is required")
	}
	if err := sector.Validate(); err != nil {
		return err
	}
	const q = `
UPDATE custom_sectors
SET name = $2, description = $3, members = $4, updated_at = NOW()
WHERE id = $1;
`
	result, err := r.db.ExecContext(ctx, q, sector.ID, sector.Name, sector.Description, pq.Array(sector.Members))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("update sector %s: %w", sector.ID, ErrSectorNotFound)
	}
	return nil
}

// DeleteSector 刪除自訂板塊。
func (r *SectorRepo) DeleteSector(ctx context.Context, id string) error {
	const q = `DELETE FROM custom_sectors WHERE id = $1;`
	result, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("delete sector %s: %w", id, ErrSectorNotFound)
	}
	return nil
}

// GetSector 取單一自訂板塊。
func (r *SectorRepo) GetSector(ctx context.Context, id string) (taxonomy.CustomSector, error) {
	const q = `
SELECT id, name, description, members, created_at, updated_at
FROM custom_sectors
WHERE id = $1;
`
	var s taxonomy.CustomSector
	var members pq.StringArray
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Name, &s.Description, &members, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return taxonomy.CustomSector{}, fmt.Errorf("get sector %s: %w", id, ErrSectorNotFound)
	}
	if err != nil {
		return taxonomy.CustomSector{}, err
	}
	s.Members = members
	return s, nil
}

// ListSectors 取全部自訂板塊，依建立時間遞增。
func (r *SectorRepo) ListSectors(ctx context.Context) ([]taxonomy.CustomSector, error) {
	const q = `
SELECT id, name, description, members, created_at, updated_at
FROM custom_sectors
ORDER BY created_at;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []taxonomy.CustomSector
	for rows.Next() {
		var s taxonomy.CustomSector
		var members pq.StringArray
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &members, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Members = members
		out = append(out, s)
	}
	return out, rows.Err()
}

// Taxonomy 實作分類來源介面。
func (r *SectorRepo) Taxonomy() taxonomy.Taxonomy { return taxonomy.Custom }

// Resolve 將全部自訂板塊轉成計算用的成分清單；日期對自訂板塊無意義。
func (r *SectorRepo) Resolve(ctx context.Context, date time.Time) ([]taxonomy.Grouping, error) {
	sectors, err := r.ListSectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list custom sectors: %w", err)
	}
	groupings := make([]taxonomy.Grouping, 0, len(sectors))
	for _, s := range sectors {
		groupings = append(groupings, s.Grouping())
	}
	return groupings, nil
}
