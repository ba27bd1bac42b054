// Package storage defines the object store holding input folders, keyword
// files, training data, transcription output and results.
//
// Keys are slash-separated and relative to the configured root, so the same
// layout works against a local directory and an s3://bucket/prefix root:
//
//	input/<folder>/{*.txt, media}
//	keywords/learned_keywords.txt
//	training_data/<keyword>.txt
//	output/{st,clm}-<suffix>.json
//	result/{runs.csv, leaderboard.txt}
package storage

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"clmeval/internal/services"
)

// Well-known prefixes and keys under the storage root.
const (
	InputPrefix        = "input/"
	KeywordsPrefix     = "keywords/"
	TrainingDataPrefix = "training_data/"
	OutputPrefix       = "output/"
	ResultPrefix       = "result/"

	LearnedKeywordsKey = KeywordsPrefix + "learned_keywords.txt"
	LedgerKey          = ResultPrefix + "runs.csv"
	LeaderboardKey     = ResultPrefix + "leaderboard.txt"
)

// ErrNotFound reports a missing object. It is the services marker so callers
// can classify storage misses the same way as other lookups.
var ErrNotFound = services.ErrNotFound

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is the object store contract. Implementations are safe for
// sequential use by a single run.
type Store interface {
	// Read returns the object's bytes or an error matching ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)
	// Write replaces the object at key.
	Write(ctx context.Context, key string, data []byte) error
	// List returns every object whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// URI renders a human and backend readable location for key.
	URI(key string) string
}

// Locator is implemented by stores that live in S3 and can hand managed
// services a bucket/key pair.
type Locator interface {
	Bucket() string
	ObjectKey(key string) string
}

// CleanKey normalizes a relative key: forward slashes, no leading slash, no
// dot segments. A trailing slash is preserved for prefixes.
func CleanKey(key string) string {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	if key == "" {
		return ""
	}
	trailing := strings.HasSuffix(key, "/")
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if trailing && cleaned != "" {
		cleaned += "/"
	}
	return cleaned
}

// SortObjects orders objects by key.
func SortObjects(objects []ObjectInfo) {
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
}

// Newest returns the most recently modified object, or false for an empty slice.
func Newest(objects []ObjectInfo) (ObjectInfo, bool) {
	var newest ObjectInfo
	found := false
	for _, obj := range objects {
		if !found || obj.LastModified.After(newest.LastModified) {
			newest = obj
			found = true
		}
	}
	return newest, found
}

// ReadText reads an object as a string.
func ReadText(ctx context.Context, store Store, key string) (string, error) {
	data, err := store.Read(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteText writes a string object.
func WriteText(ctx context.Context, store Store, key, text string) error {
	return store.Write(ctx, key, []byte(text))
}
