package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	strengthDomain "sector-flow/internal/domain/strength"
	"sector-flow/internal/domain/taxonomy"
)

// Store 為未設定資料庫時使用的記憶體儲存，支援強度快取、
// 歷史紀錄與自訂板塊。行程結束即消失，僅供開發與示範。
type Store struct {
	mu      sync.RWMutex
	active  map[strengthDomain.Key]strengthDomain.Result
	history []strengthDomain.HistoryEntry
	sectors map[string]taxonomy.CustomSector
}

// NewStore 建立新的記憶體 Store 實例。
func NewStore() *Store {
	return &Store{
		active:  make(map[strengthDomain.Key]strengthDomain.Result),
		sectors: make(map[string]taxonomy.CustomSector),
	}
}

// FindActive 取同鍵的 active 結果；不存在回傳 (nil, nil)。
func (s *Store) FindActive(ctx context.Context, key strengthDomain.Key) (*strengthDomain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if res, ok := s.active[normalizeKey(key)]; ok {
		return &res, nil
	}
	return nil, nil
}

// ListActiveByDate 取某日某分類的全部 active 結果，依得分遞減。
func (s *Store) ListActiveByDate(ctx context.Context, date time.Time, tax taxonomy.Taxonomy) ([]strengthDomain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []strengthDomain.Result
	day := dateOnly(date)
	for key, res := range s.active {
		if key.CalcDate.Equal(day) && key.Taxonomy == tax {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].SectorID < out[j].SectorID
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}

// InsertActive 寫入一筆 active 結果；同鍵已存在時不覆寫並回傳 false。
func (s *Store) InsertActive(ctx context.Context, res strengthDomain.Result) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizeKey(res.Key())
	if _, exists := s.active[key]; exists {
		return false, nil
	}
	res.Active = true
	s.active[key] = res
	return true, nil
}

// Deactivate 移除板塊某日的 active 結果。
func (s *Store) Deactivate(ctx context.Context, sectorID string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := dateOnly(date)
	for key := range s.active {
		if key.SectorID == sectorID && key.CalcDate.Equal(day) {
			delete(s.active, key)
		}
	}
	return nil
}

// AppendHistory 追加一筆歷史紀錄。
func (s *Store) AppendHistory(ctx context.Context, entry strengthDomain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entry)
	return nil
}

// HistoryBySector 取板塊歷史強度，新到舊。
func (s *Store) HistoryBySector(ctx context.Context, sectorID string, limit int) ([]strengthDomain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []strengthDomain.HistoryEntry
	for _, e := range s.history {
		if e.SectorID == sectorID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CalcDate.After(out[j].CalcDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateSector 建立自訂板塊並回傳其 id。
func (s *Store) CreateSector(ctx context.Context, sector taxonomy.CustomSector) (string, error) {
	if err := sector.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sector.ID = uuid.NewString()
	now := time.Now()
	sector.CreatedAt = now
	sector.UpdatedAt = now
	s.sectors[sector.ID] = sector
	return sector.ID, nil
}

// UpdateSector 更新自訂板塊。
func (s *Store) UpdateSector(ctx context.Context, sector taxonomy.CustomSector) error {
	if err := sector.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sectors[sector.ID]
	if !ok {
		return fmt.Errorf("sector %s not found", sector.ID)
	}
	sector.CreatedAt = existing.CreatedAt
	sector.UpdatedAt = time.Now()
	s.sectors[sector.ID] = sector
	return nil
}

// DeleteSector 刪除自訂板塊。
func (s *Store) DeleteSector(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sectors[id]; !ok {
		return fmt.Errorf("sector %s not found", id)
	}
	delete(s.sectors, id)
	return nil
}

// GetSector 取單一自訂板塊。
func (s *Store) GetSector(ctx context.Context, id string) (taxonomy.CustomSector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sector, ok := s.sectors[id]
	if !ok {
		return taxonomy.CustomSector{}, fmt.Errorf("sector %s not found", id)
	}
	return sector, nil
}

// ListSectors 取全部自訂板塊，依建立時間遞增。
func (s *Store) ListSectors(ctx context.Context) ([]taxonomy.CustomSector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]taxonomy.CustomSector, 0, len(s.sectors))
	for _, sector := range s.sectors {
		out = append(out, sector)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Taxonomy 實作分類來源介面。
func (s *Store) Taxonomy() taxonomy.Taxonomy { return taxonomy.Custom }

// Resolve 將自訂板塊轉成計算用的成分清單。
func (s *Store) Resolve(ctx context.Context, date time.Time) ([]taxonomy.Grouping, error) {
	sectors, err := s.ListSectors(ctx)
	if err != nil {
		return nil, err
	}
	groupings := make([]taxonomy.Grouping, 0, len(sectors))
	for _, sector := range sectors {
		groupings = append(groupings, sector.Grouping())
	}
	return groupings, nil
}

// normalizeKey 截掉時刻部分，確保同日不同時刻視為同鍵。
func normalizeKey(key strengthDomain.Key) strengthDomain.Key {
	key.CalcDate = dateOnly(key.CalcDate)
	return key
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
