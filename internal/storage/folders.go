package storage

import (
	"context"
	"path"
	"sort"
	"strings"
)

// Folder is one evaluation input: a ground truth transcript and its media.
type Folder struct {
	ID       string
	TruthKey string
	MediaKey string
}

// SkippedFolder names an input folder that lacks exactly one ground truth and
// one media file.
type SkippedFolder struct {
	ID     string
	Reason string
}

// ListFolders groups objects under input/ by their first path segment.
// Objects directly under input/ and nested deeper than one level are ignored.
func ListFolders(ctx context.Context, store Store) ([]Folder, []SkippedFolder, error) {
	objects, err := store.List(ctx, InputPrefix)
	if err != nil {
		return nil, nil, err
	}

	type group struct {
		truths []string
		media  []string
	}
	groups := make(map[string]*group)
	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, InputPrefix)
		folder, name, ok := strings.Cut(rel, "/")
		if !ok || folder == "" || name == "" || strings.Contains(name, "/") {
			continue
		}
		g := groups[folder]
		if g == nil {
			g = &group{}
			groups[folder] = g
		}
		if strings.EqualFold(path.Ext(name), ".txt") {
			g.truths = append(g.truths, obj.Key)
		} else {
			g.media = append(g.media, obj.Key)
		}
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var folders []Folder
	var skipped []SkippedFolder
	for _, id := range ids {
		g := groups[id]
		switch {
		case len(g.truths) != 1:
			skipped = append(skipped, SkippedFolder{ID: id, Reason: "expected exactly one .txt ground truth"})
		case len(g.media) != 1:
			skipped = append(skipped, SkippedFolder{ID: id, Reason: "expected exactly one media file"})
		default:
			folders = append(folders, Folder{ID: id, TruthKey: g.truths[0], MediaKey: g.media[0]})
		}
	}
	return folders, skipped, nil
}
