package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
)

// commitMoveScript compares the stored version against the expected one
// and, only on a match, writes the new version, the item document, and
// appends the history entry. Returns 1 on commit, 0 on a lost race, -1
// when the item does not exist.
var commitMoveScript = goredis.NewScript(`
local ver = redis.call('GET', KEYS[1])
if not ver then
  return -1
end
if ver ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2])
redis.call('SET', KEYS[2], ARGV[3])
redis.call('RPUSH', KEYS[3], ARGV[4])
return 1
`)

// CreateItem persists a new work item together with its creation history
// entry.
func (s *Store) CreateItem(ctx context.Context, w *item.WorkItem, entry *item.HistoryEntry) error {
	itemData, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("metatasks/redis: create item: %w", err)
	}
	entryData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("metatasks/redis: create item: %w", err)
	}

	key := w.ID.String()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, itemKey(key), itemData, 0)
	pipe.Set(ctx, itemVersionKey(key), strconv.FormatInt(w.Version, 10), 0)
	pipe.RPush(ctx, historyKey(key), entryData)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("metatasks/redis: create item: %w", err)
	}
	return nil
}

// GetItem retrieves a work item by ID.
func (s *Store) GetItem(ctx context.Context, itemID id.ItemID) (*item.WorkItem, error) {
	data, err := s.client.Get(ctx, itemKey(itemID.String())).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, metatasks.ErrItemNotFound
		}
		return nil, fmt.Errorf("metatasks/redis: get item: %w", err)
	}
	w := new(item.WorkItem)
	if err := json.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("metatasks/redis: get item: %w", err)
	}
	return w, nil
}

// CommitMove atomically persists a moved item and appends its history
// entry, guarded by the optimistic version check.
func (s *Store) CommitMove(ctx context.Context, w *item.WorkItem, expectedVersion int64, entry *item.HistoryEntry) error {
	next := *w
	next.Version = expectedVersion + 1

	itemData, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("metatasks/redis: commit move: %w", err)
	}
	entryData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("metatasks/redis: commit move: %w", err)
	}

	key := w.ID.String()
	res, err := commitMoveScript.Run(ctx, s.client,
		[]string{itemVersionKey(key), itemKey(key), historyKey(key)},
		strconv.FormatInt(expectedVersion, 10),
		strconv.FormatInt(next.Version, 10),
		itemData,
		entryData,
	).Int()
	if err != nil {
		return fmt.Errorf("metatasks/redis: commit move: %w", err)
	}
	switch res {
	case -1:
		return metatasks.ErrItemNotFound
	case 0:
		return metatasks.ErrVersionConflict
	}
	return nil
}

// ListHistory returns an item's history entries oldest first.
func (s *Store) ListHistory(ctx context.Context, itemID id.ItemID, opts item.ListOpts) ([]*item.HistoryEntry, error) {
	key := itemID.String()

	start := int64(opts.Offset)
	stop := int64(-1)
	if opts.Limit > 0 {
		stop = start + int64(opts.Limit) - 1
	}

	raws, err := s.client.LRange(ctx, historyKey(key), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("metatasks/redis: list history: %w", err)
	}
	if len(raws) == 0 {
		exists, err := s.client.Exists(ctx, itemKey(key)).Result()
		if err != nil {
			return nil, fmt.Errorf("metatasks/redis: list history: %w", err)
		}
		if exists == 0 {
			return nil, metatasks.ErrItemNotFound
		}
		return nil, nil
	}

	out := make([]*item.HistoryEntry, 0, len(raws))
	for _, raw := range raws {
		e := new(item.HistoryEntry)
		if err := json.Unmarshal([]byte(raw), e); err != nil {
			return nil, fmt.Errorf("metatasks/redis: list history: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
