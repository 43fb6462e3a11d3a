package rag

import (
	"context"
	"errors"
	"strings"

	"groundedkb/internal/contextutil"
	"groundedkb/internal/lexical"
	"groundedkb/internal/storage"
)

// followupMaxWords is the longest query treated as a follow-up by length alone.
const followupMaxWords = 2

var continuationPhrases = []string{
	"more", "continue", "go on", "as above", "tell me more", "what else", "and then",
	"подробнее", "продолжи", "продолжай", "ещё", "еще", "дальше", "как выше",
}

// isFollowup reports whether a turn leans on the previous one.
func isFollowup(query string) bool {
	tokens := lexical.Tokenize(query)
	if len(tokens) == 0 {
		return false
	}
	if len(tokens) <= followupMaxWords {
		return true
	}
	padded := " " + strings.Join(tokens, " ") + " "
	for _, p := range continuationPhrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

// loadDialogCache returns the cached state of a dialog, or nil.
// A corrupt row is logged and treated as absent.
func loadDialogCache(ctx context.Context, store storage.DialogCacheStore, dialogID, modelID string) *storage.DialogCache {
	if store == nil || dialogID == "" {
		return nil
	}
	logger := contextutil.LoggerFromContext(ctx)

	cache, err := store.Get(ctx, dialogID, modelID)
	switch {
	case err == nil:
		return cache
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case errors.Is(err, storage.ErrCorruptCache):
		logger.WarnContext(ctx, "ignoring corrupt dialog cache", "dialog_id", dialogID, "error", err)
		return nil
	default:
		logger.WarnContext(ctx, "failed to load dialog cache", "dialog_id", dialogID, "error", err)
		return nil
	}
}

// saveDialogCache stores what the answer was built from, capped in size.
func saveDialogCache(ctx context.Context, store storage.DialogCacheStore, dialogID, modelID string, used []Candidate, keywords []string, maxChunks, maxKeywords int) {
	if store == nil || dialogID == "" {
		return
	}

	ids := make([]string, 0, len(used))
	for _, c := range used {
		if len(ids) >= maxChunks {
			break
		}
		ids = append(ids, c.Chunk.ID)
	}
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}

	err := store.Upsert(ctx, &storage.DialogCache{
		DialogID: dialogID,
		ModelID:  modelID,
		ChunkIDs: ids,
		Keywords: keywords,
	})
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to update dialog cache", "dialog_id", dialogID, "error", err)
	}
}

// mergeKeywords appends extra keywords not already present.
func mergeKeywords(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, k := range list {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
