package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"freegames_bot/internal/model"
)

// exportSnapshot writes the cycle's collapsed offers as JSON for the web
// frontend. Enriched offers replace their collapsed originals and free
// offers sort before discounted ones.
func (s *Scheduler) exportSnapshot(batch, enriched []model.Offer) error {
	byKey := make(map[string]model.Offer, len(enriched))
	for _, o := range enriched {
		byKey[o.CanonicalKey] = o
	}

	out := make([]model.Offer, len(batch))
	for i, o := range batch {
		if e, ok := byKey[o.CanonicalKey]; ok {
			o = e
		}
		out[i] = o
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].IsFree != out[j].IsFree {
			return out[i].IsFree
		}
		return strings.ToLower(out[i].CleanedTitle) < strings.ToLower(out[j].CleanedTitle)
	})

	if err := os.MkdirAll(filepath.Dir(s.exportPath), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(s.exportPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.log.Info("exported web snapshot", "path", s.exportPath, "offers", len(out))
	return nil
}
