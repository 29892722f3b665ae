package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// FAQItemsKey is the hash of FAQ entries keyed by item id.
	FAQItemsKey = "faq:items"
	// FAQOrderKey is the list of item ids in display order. An id present in
	// one structure but not the other is a corrupt state; the mutating
	// operations below always touch both.
	FAQOrderKey = "faq:order"
)

// FAQStore persists FAQ entries plus their display order.
type FAQStore struct {
	rdb *redis.Client
}

// NewFAQStore creates an FAQStore backed by the given Redis client.
func NewFAQStore(rdb *redis.Client) *FAQStore {
	return &FAQStore{rdb: rdb}
}

// List returns FAQ items in stored order. Entries missing from the item hash
// are skipped rather than failing the whole listing.
func (s *FAQStore) List(ctx context.Context) ([]*FAQItem, error) {
	ids, err := s.rdb.LRange(ctx, FAQOrderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read faq order: %w", err)
	}

	items := make([]*FAQItem, 0, len(ids))
	for _, id := range ids {
		item, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}

// HasItems reports whether any FAQ entries exist.
func (s *FAQStore) HasItems(ctx context.Context) (bool, error) {
	length, err := s.rdb.LLen(ctx, FAQOrderKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read faq order length: %w", err)
	}
	return length > 0, nil
}

// Get fetches an FAQ item by id. Returns nil, nil when the id is unknown.
func (s *FAQStore) Get(ctx context.Context, id string) (*FAQItem, error) {
	raw, err := s.rdb.HGet(ctx, FAQItemsKey, id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read faq item %s: %w", id, err)
	}

	var item FAQItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("corrupt faq item %s: %w", id, err)
	}
	return &item, nil
}

// Add creates a new FAQ entry at the end of the display order.
func (s *FAQStore) Add(ctx context.Context, title, text string, attachments []Attachment) (*FAQItem, error) {
	for _, attachment := range attachments {
		if !attachment.Kind.Valid() {
			return nil, fmt.Errorf("unsupported attachment kind %q", attachment.Kind)
		}
	}

	item := &FAQItem{
		ID:          uuid.NewString(),
		Title:       title,
		Text:        text,
		Attachments: attachments,
	}
	if item.Attachments == nil {
		item.Attachments = []Attachment{}
	}

	if err := s.put(ctx, item); err != nil {
		return nil, err
	}
	if err := s.rdb.RPush(ctx, FAQOrderKey, item.ID).Err(); err != nil {
		return nil, fmt.Errorf("failed to append faq order for %s: %w", item.ID, err)
	}
	return item, nil
}

// Rename updates the title of an existing entry. Returns nil, nil when the
// id is unknown.
func (s *FAQStore) Rename(ctx context.Context, id, title string) (*FAQItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	item.Title = title
	if err := s.put(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateContent replaces the text and attachments of an existing entry.
// Returns nil, nil when the id is unknown.
func (s *FAQStore) UpdateContent(ctx context.Context, id, text string, attachments []Attachment) (*FAQItem, error) {
	for _, attachment := range attachments {
		if !attachment.Kind.Valid() {
			return nil, fmt.Errorf("unsupported attachment kind %q", attachment.Kind)
		}
	}

	item, err := s.Get(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	item.Text = text
	item.Attachments = attachments
	if item.Attachments == nil {
		item.Attachments = []Attachment{}
	}
	if err := s.put(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes an entry from both the item hash and the order list.
func (s *FAQStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.HDel(ctx, FAQItemsKey, id).Err(); err != nil {
		return fmt.Errorf("failed to delete faq item %s: %w", id, err)
	}
	if err := s.rdb.LRem(ctx, FAQOrderKey, 0, id).Err(); err != nil {
		return fmt.Errorf("failed to delete faq order entry %s: %w", id, err)
	}
	return nil
}

func (s *FAQStore) put(ctx context.Context, item *FAQItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode faq item %s: %w", item.ID, err)
	}
	if err := s.rdb.HSet(ctx, FAQItemsKey, item.ID, payload).Err(); err != nil {
		return fmt.Errorf("failed to store faq item %s: %w", item.ID, err)
	}
	return nil
}
