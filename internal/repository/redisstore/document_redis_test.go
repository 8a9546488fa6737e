package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docregistry/internal/model"
	"docregistry/internal/repository"
)

func newRepo(t *testing.T) (*DocumentRedis, *miniredis.Miniredis) {
	t.Helper()
	m, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewDocumentRedis(client, "test:"), m
}

func sampleDoc(id string) model.Document {
	return model.Document{
		DocumentID:  id,
		Title:       "Title " + id,
		Tags:        []string{"a", "b"},
		UploadedBy:  "editor@example.com",
		Permissions: []string{},
	}
}

func TestInsertListFind(t *testing.T) {
	repo, m := newRepo(t)
	ctx := context.Background()

	for _, id := range []string{"doc3", "doc1", "doc2"} {
		require.NoError(t, repo.Insert(ctx, sampleDoc(id)))
	}

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"doc3", "doc1", "doc2"}, []string{docs[0].DocumentID, docs[1].DocumentID, docs[2].DocumentID})
	assert.Equal(t, sampleDoc("doc3"), docs[0])

	got, err := repo.FindByID(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, sampleDoc("doc1"), *got)

	_, err = repo.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.True(t, m.Exists("test:{documents}"))
	assert.True(t, m.Exists("test:{documents}:order"))
}

func TestKeysShareHashSlot(t *testing.T) {
	repo := NewDocumentRedis(nil, "app:")
	assert.Equal(t, "documents", hashTag(repo.recordsKey))
	assert.Equal(t, hashTag(repo.recordsKey), hashTag(repo.orderKey))
}

func TestListEmpty(t *testing.T) {
	repo, _ := newRepo(t)
	docs, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestInsertDuplicate(t *testing.T) {
	repo, m := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, sampleDoc("doc1")))
	assert.ErrorIs(t, repo.Insert(ctx, sampleDoc("doc1")), repository.ErrDuplicateID)

	order, err := m.List("test:{documents}:order")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1"}, order)
}

func TestConcurrentInsertSameID(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	const n = 20
	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Insert(ctx, sampleDoc("contested"))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, repository.ErrDuplicateID):
				dup.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), dup.Load())
}

func TestDelete(t *testing.T) {
	repo, m := newRepo(t)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Insert(ctx, sampleDoc(fmt.Sprintf("doc%d", i))))
	}

	deleted, err := repo.Delete(ctx, "doc2", nil)
	require.NoError(t, err)
	assert.Equal(t, "doc2", deleted.DocumentID)

	order, err := m.List("test:{documents}:order")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1", "doc3"}, order)

	_, err = repo.FindByID(ctx, "doc2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteMissing(t *testing.T) {
	repo, m := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, sampleDoc("doc1")))

	_, err := repo.Delete(ctx, "ghost", nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	order, err := m.List("test:{documents}:order")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1"}, order)
}

func TestDeletePreconditionAborts(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, sampleDoc("doc1")))

	denied := errors.New("denied")
	_, err := repo.Delete(ctx, "doc1", func(d model.Document) error {
		assert.Equal(t, "editor@example.com", d.UploadedBy)
		return denied
	})
	assert.ErrorIs(t, err, denied)

	_, err = repo.FindByID(ctx, "doc1")
	assert.NoError(t, err)
}

func TestConcurrentDeleteSameID(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, sampleDoc("doc1")))

	const n = 8
	var ok, missing atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Delete(ctx, "doc1", nil)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, repository.ErrNotFound):
				missing.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), missing.Load())
}

func TestCorruptRecord(t *testing.T) {
	repo, m := newRepo(t)
	m.HSet("test:{documents}", "bad", "{not json")
	_, err := m.Push("test:{documents}:order", "bad")
	require.NoError(t, err)

	_, err = repo.List(context.Background())
	assert.ErrorContains(t, err, "decode document")
	_, err = repo.FindByID(context.Background(), "bad")
	assert.ErrorContains(t, err, "decode document")
}

func TestPing(t *testing.T) {
	repo, m := newRepo(t)
	assert.NoError(t, repo.Ping(context.Background()))

	m.Close()
	assert.Error(t, repo.Ping(context.Background()))
}

// hashTag returns the part of key Redis Cluster hashes to pick a slot.
func hashTag(key string) string {
	if i := strings.IndexByte(key, '{'); i >= 0 {
		if j := strings.IndexByte(key[i+1:], '}'); j > 0 {
			return key[i+1 : i+1+j]
		}
	}
	return key
}
