package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"groundedkb/internal/storage"
	"groundedkb/internal/storage/mocks"
)

func TestIsFollowup(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"more", true},
		{"and then?", true},
		{"Подробнее, пожалуйста", true},
		{"Tell me more about his training", true},
		{"what else does the plan include", true},
		{"What is the refund policy for annual plans?", false},
		{"", false},
		{"?!", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, isFollowup(tt.query))
		})
	}
}

func TestMergeKeywords(t *testing.T) {
	assert.Equal(t, []string{"ivan", "lift", "weight"}, mergeKeywords([]string{"ivan", "lift"}, []string{"lift", "weight", "ivan"}))
	assert.Equal(t, []string{"ivan"}, mergeKeywords(nil, []string{"ivan"}))
}

func TestLoadDialogCache(t *testing.T) {
	ctx := context.Background()
	cached := &storage.DialogCache{DialogID: "d1", ModelID: "emb", ChunkIDs: []string{"a"}, Keywords: []string{"ivan"}}

	tests := []struct {
		name  string
		cache *storage.DialogCache
		err   error
		want  *storage.DialogCache
	}{
		{name: "hit", cache: cached, want: cached},
		{name: "missing", err: storage.ErrNotFound},
		{name: "corrupt", err: fmt.Errorf("%w: chunk_ids: bad json", storage.ErrCorruptCache)},
		{name: "store failure", err: errors.New("database is locked")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockDialogCacheStore(ctrl)
			store.EXPECT().Get(gomock.Any(), "d1", "emb").Return(tt.cache, tt.err)

			assert.Equal(t, tt.want, loadDialogCache(ctx, store, "d1", "emb"))
		})
	}

	t.Run("no dialog id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockDialogCacheStore(ctrl)
		assert.Nil(t, loadDialogCache(ctx, store, "", "emb"))
		assert.Nil(t, loadDialogCache(ctx, nil, "d1", "emb"))
	})
}

func TestSaveDialogCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDialogCacheStore(ctrl)

	used := []Candidate{
		{Chunk: storage.ChunkRecord{ID: "a"}},
		{Chunk: storage.ChunkRecord{ID: "b"}},
		{Chunk: storage.ChunkRecord{ID: "c"}},
	}
	store.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, c *storage.DialogCache) error {
		assert.Equal(t, "d1", c.DialogID)
		assert.Equal(t, "emb", c.ModelID)
		assert.Equal(t, []string{"a", "b"}, c.ChunkIDs)
		assert.Equal(t, []string{"ivan"}, c.Keywords)
		return nil
	})

	saveDialogCache(context.Background(), store, "d1", "emb", used, []string{"ivan", "lift"}, 2, 1)

	// Without a dialog nothing is written.
	saveDialogCache(context.Background(), store, "", "emb", used, nil, 2, 1)
}

func TestSaveDialogCache_ErrorIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDialogCacheStore(ctrl)
	store.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	saveDialogCache(context.Background(), store, "d1", "emb", nil, nil, 10, 20)
}
