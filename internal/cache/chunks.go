package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/aicfd/aicfd/internal/model"
	"github.com/aicfd/aicfd/internal/storage"
)

// ChunkRef pairs a loaded CacheChunk with the path it was read from, so the
// consolidation agent can delete exactly the files it consumed.
type ChunkRef struct {
	Path  string
	Chunk model.CacheChunk
}

// EnumerateAll walks every platform directory under cacheRoot (.cache/llm),
// via the storage package's document store, and loads every chunk found.
func EnumerateAll(cacheRoot string) ([]ChunkRef, error) {
	ctx := context.Background()
	store := storage.New(cacheRoot)

	platformDirs, err := store.List(ctx, nil)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var refs []ChunkRef
	for _, platform := range platformDirs {
		dir := filepath.Join(cacheRoot, platform)
		_ = store.Scan(ctx, []string{platform}, func(key string, data json.RawMessage) error {
			var chunk model.CacheChunk
			if err := json.Unmarshal(data, &chunk); err != nil {
				return nil // malformed chunk, skip it and keep scanning
			}
			refs = append(refs, ChunkRef{Path: filepath.Join(dir, key+".json"), Chunk: chunk})
			return nil
		})
	}

	return refs, nil
}

// Load reads and decodes one chunk file by its full path.
func Load(path string) (model.CacheChunk, error) {
	store := storage.New(filepath.Dir(path))
	key := strings.TrimSuffix(filepath.Base(path), ".json")

	var chunk model.CacheChunk
	if err := store.Get(context.Background(), []string{key}, &chunk); err != nil {
		return model.CacheChunk{}, err
	}
	return chunk, nil
}

// Delete removes a chunk file. Deleting a missing file is not an error.
func Delete(path string) error {
	store := storage.New(filepath.Dir(path))
	key := strings.TrimSuffix(filepath.Base(path), ".json")
	return store.Delete(context.Background(), []string{key})
}
