package archive

import (
	"fmt"
	"time"
)

// PruneResult summarizes a Prune pass.
type PruneResult struct {
	Deleted    []string `json:"deleted"`
	Kept       int      `json:"kept"`
	Errors     []string `json:"errors,omitempty"`
	SpaceSaved int64    `json:"spaceSaved"`
}

// Prune deletes objects under prefix last modified before now-maxAge. With
// dryRun nothing is removed but the result reports what would be.
func (s *Store) Prune(prefix string, maxAge time.Duration, now time.Time, dryRun bool) (*PruneResult, error) {
	objects, err := s.List(prefix)
	if err != nil {
		return nil, err
	}

	threshold := now.Add(-maxAge)
	result := &PruneResult{Deleted: make([]string, 0)}
	for _, obj := range objects {
		if !obj.ModTime.Before(threshold) {
			result.Kept++
			continue
		}
		if !dryRun {
			if err := s.Delete(obj.Key); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", obj.Key, err))
				continue
			}
		}
		result.Deleted = append(result.Deleted, obj.Key)
		result.SpaceSaved += obj.Size
	}
	return result, nil
}

// DiskUsage returns the number of objects and bytes used under prefix.
func (s *Store) DiskUsage(prefix string) (count int, bytes int64, err error) {
	objects, err := s.List(prefix)
	if err != nil {
		return 0, 0, err
	}
	for _, obj := range objects {
		bytes += obj.Size
	}
	return len(objects), bytes, nil
}
