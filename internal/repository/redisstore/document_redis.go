package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"docregistry/internal/model"
	"docregistry/internal/repository"
)

// maxDeleteRetries bounds optimistic retries when a concurrent write touches
// the record hash between WATCH and EXEC.
const maxDeleteRetries = 16

// insertScript creates the record only if its id is free and appends the id
// to the order list in the same server-side step.
var insertScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 1 then
  redis.call('RPUSH', KEYS[2], ARGV[1])
  return 1
end
return 0
`)

// DocumentRedis is a Redis implementation of repository.DocumentRepository.
// Records are JSON values in a hash keyed by document id; a list keeps the
// ids in insertion order.
type DocumentRedis struct {
	client     redis.UniversalClient
	recordsKey string
	orderKey   string
}

var _ repository.DocumentRepository = (*DocumentRedis)(nil)

// NewDocumentRedis creates a repository whose keys start with prefix. Both
// keys share the {documents} hash tag so scripts and transactions touching
// them stay in one cluster slot.
func NewDocumentRedis(client redis.UniversalClient, prefix string) *DocumentRedis {
	return &DocumentRedis{
		client:     client,
		recordsKey: prefix + "{documents}",
		orderKey:   prefix + "{documents}:order",
	}
}

func (r *DocumentRedis) Insert(ctx context.Context, doc model.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	created, err := insertScript.Run(ctx, r.client, []string{r.recordsKey, r.orderKey}, doc.DocumentID, payload).Int()
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if created == 0 {
		return repository.ErrDuplicateID
	}
	return nil
}

// List reads the order list and the record hash inside one MULTI/EXEC block.
func (r *DocumentRedis) List(ctx context.Context) ([]model.Document, error) {
	var (
		order   *redis.StringSliceCmd
		records *redis.MapStringStringCmd
	)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		order = p.LRange(ctx, r.orderKey, 0, -1)
		records = p.HGetAll(ctx, r.recordsKey)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	byID := records.Val()
	docs := make([]model.Document, 0, len(byID))
	for _, id := range order.Val() {
		raw, ok := byID[id]
		if !ok {
			continue
		}
		d, err := decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (r *DocumentRedis) FindByID(ctx context.Context, id string) (*model.Document, error) {
	raw, err := r.client.HGet(ctx, r.recordsKey, id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	d, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Delete watches the record hash, evaluates pre on the current value and
// removes the record and its order entry in one transaction. A concurrent
// write aborts the transaction and the whole check is retried.
func (r *DocumentRedis) Delete(ctx context.Context, id string, pre repository.Precondition) (*model.Document, error) {
	var deleted model.Document

	txf := func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, r.recordsKey, id).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return repository.ErrNotFound
			}
			return err
		}
		d, err := decode(raw)
		if err != nil {
			return err
		}
		if pre != nil {
			if err := pre(d); err != nil {
				return err
			}
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HDel(ctx, r.recordsKey, id)
			p.LRem(ctx, r.orderKey, 1, id)
			return nil
		})
		if err != nil {
			return err
		}
		deleted = d
		return nil
	}

	for i := 0; i < maxDeleteRetries; i++ {
		err := r.client.Watch(ctx, txf, r.recordsKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &deleted, nil
	}
	return nil, fmt.Errorf("delete document %s: too much contention", id)
}

func (r *DocumentRedis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func decode(raw []byte) (model.Document, error) {
	var d model.Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.Document{}, fmt.Errorf("decode document: %w", err)
	}
	d.Normalize()
	return d, nil
}
