// Package notify sends web push notifications when tasks finish.
package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/kazz187/devguild/pkg/storage"
)

const subscriptionPrefix = "notify/subscriptions/"

// Subscription is one browser push subscription.
type Subscription struct {
	ID        string    `json:"id"`
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"p256dh_key"`
	AuthKey   string    `json:"auth_key"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscriptionStore persists subscriptions through storage. The id is
// derived from the endpoint, so re-subscribing the same browser
// overwrites the previous record.
type SubscriptionStore struct {
	storage storage.Storage
}

func NewSubscriptionStore(st storage.Storage) *SubscriptionStore {
	return &SubscriptionStore{storage: st}
}

func subscriptionID(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return hex.EncodeToString(sum[:8])
}

func subscriptionPath(id string) string {
	return subscriptionPrefix + id + ".json"
}

// Create stores a subscription and returns it with its id assigned.
func (s *SubscriptionStore) Create(ctx context.Context, sub *Subscription) (*Subscription, error) {
	sub.ID = subscriptionID(sub.Endpoint)
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	data, err := json.Marshal(sub)
	if err != nil {
		return nil, err
	}
	if err := s.storage.Write(ctx, subscriptionPath(sub.ID), data); err != nil {
		return nil, err
	}
	return sub, nil
}

// List returns all stored subscriptions. Records that fail to decode
// are skipped.
func (s *SubscriptionStore) List(ctx context.Context) ([]*Subscription, error) {
	paths, err := s.storage.List(ctx, subscriptionPrefix)
	if err != nil {
		return nil, err
	}
	subs := make([]*Subscription, 0, len(paths))
	for _, p := range paths {
		data, err := s.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var sub Subscription
		if err := json.Unmarshal(data, &sub); err != nil {
			continue
		}
		subs = append(subs, &sub)
	}
	return subs, nil
}

// Delete removes a subscription. Deleting an unknown id is a no-op.
func (s *SubscriptionStore) Delete(ctx context.Context, id string) error {
	err := s.storage.Delete(ctx, subscriptionPath(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// DeleteByEndpoint removes the subscription for an endpoint.
func (s *SubscriptionStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	return s.Delete(ctx, subscriptionID(endpoint))
}
