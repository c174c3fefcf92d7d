package kb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-entity-linker/internal/persistence"
	"github.com/gcbaptista/go-entity-linker/internal/tokenizer"
	"github.com/gcbaptista/go-entity-linker/model"
)

type memoryPage struct {
	title   string
	context string // serialized
	raw     map[string]int
}

type memoryEntry struct {
	pageID int64
	count  int
}

// MemoryStore is an in-process knowledge base, seeded from a fixture or a gob snapshot.
type MemoryStore struct {
	mu         sync.RWMutex
	pages      map[int64]memoryPage
	dictionary map[string][]memoryEntry
	inLinks    map[int64]map[int64]struct{} // destination -> sources
	logger     *zap.Logger
}

// NewMemoryStore creates an empty in-memory knowledge base
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		pages:      make(map[int64]memoryPage),
		dictionary: make(map[string][]memoryEntry),
		inLinks:    make(map[int64]map[int64]struct{}),
		logger:     logger,
	}
}

// LookupCandidates returns the pages registered under surfaceForm ordered by page id.
func (s *MemoryStore) LookupCandidates(ctx context.Context, surfaceForm string) ([]model.CandidateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.dictionary[surfaceForm]
	records := make([]model.CandidateRecord, 0, len(entries))
	for _, e := range entries {
		page := s.pages[e.pageID]
		records = append(records, model.CandidateRecord{
			ID:       e.pageID,
			Title:    page.title,
			RawCount: e.count,
			Context:  page.context,
		})
	}
	return records, nil
}

// SourceCount returns the number of distinct pages linking to id.
func (s *MemoryStore) SourceCount(ctx context.Context, id int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inLinks[id]), nil
}

// IntersectionCount returns the number of pages linking to both ids.
func (s *MemoryStore) IntersectionCount(ctx context.Context, id1, id2 int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	small, large := s.inLinks[id1], s.inLinks[id2]
	if len(large) < len(small) {
		small, large = large, small
	}
	count := 0
	for source := range small {
		if _, ok := large[source]; ok {
			count++
		}
	}
	return count, nil
}

// Import adds pages, dictionary rows and links. Rows with an existing key replace it.
func (s *MemoryStore) Import(ctx context.Context, data *model.KnowledgeBaseData, progress func(done, total int)) error {
	if err := ValidateData(data); err != nil {
		return err
	}
	total, done := data.Size(), 0
	report := func() {
		if progress != nil {
			progress(done, total)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range data.Pages {
		serialized, err := EncodeContext(p.Context)
		if err != nil {
			return fmt.Errorf("page %d: %w", p.ID, err)
		}
		s.pages[p.ID] = memoryPage{title: p.Title, context: serialized, raw: p.Context}
		done++
	}
	report()
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, d := range data.Dictionary {
		sf := tokenizer.Normalize(d.SurfaceForm)
		entries := s.dictionary[sf]
		replaced := false
		for i := range entries {
			if entries[i].pageID == d.PageID {
				entries[i].count = d.Count
				replaced = true
			}
		}
		if !replaced {
			entries = append(entries, memoryEntry{pageID: d.PageID, count: d.Count})
			sort.Slice(entries, func(i, j int) bool { return entries[i].pageID < entries[j].pageID })
		}
		s.dictionary[sf] = entries
		done++
	}
	report()
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, l := range data.Links {
		sources, ok := s.inLinks[l.Destination]
		if !ok {
			sources = make(map[int64]struct{})
			s.inLinks[l.Destination] = sources
		}
		sources[l.Source] = struct{}{}
		done++
	}
	report()

	s.logger.Info("Imported knowledge base data",
		zap.Int("pages", len(data.Pages)),
		zap.Int("dictionary_entries", len(data.Dictionary)),
		zap.Int("links", len(data.Links)))
	return nil
}

// Export returns the store content in a deterministic order.
func (s *MemoryStore) Export() *model.KnowledgeBaseData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := &model.KnowledgeBaseData{}
	for id, p := range s.pages {
		data.Pages = append(data.Pages, model.Page{ID: id, Title: p.title, Context: p.raw})
	}
	sort.Slice(data.Pages, func(i, j int) bool { return data.Pages[i].ID < data.Pages[j].ID })

	for sf, entries := range s.dictionary {
		for _, e := range entries {
			data.Dictionary = append(data.Dictionary, model.DictionaryEntry{SurfaceForm: sf, PageID: e.pageID, Count: e.count})
		}
	}
	sort.Slice(data.Dictionary, func(i, j int) bool {
		if data.Dictionary[i].SurfaceForm != data.Dictionary[j].SurfaceForm {
			return data.Dictionary[i].SurfaceForm < data.Dictionary[j].SurfaceForm
		}
		return data.Dictionary[i].PageID < data.Dictionary[j].PageID
	})

	for dst, sources := range s.inLinks {
		for src := range sources {
			data.Links = append(data.Links, model.Link{Source: src, Destination: dst})
		}
	}
	sort.Slice(data.Links, func(i, j int) bool {
		if data.Links[i].Destination != data.Links[j].Destination {
			return data.Links[i].Destination < data.Links[j].Destination
		}
		return data.Links[i].Source < data.Links[j].Source
	})
	return data
}

// SaveSnapshot writes the store content to a gob file.
func (s *MemoryStore) SaveSnapshot(path string) error {
	if err := persistence.SaveGob(path, s.Export()); err != nil {
		return fmt.Errorf("failed to save knowledge base snapshot: %w", err)
	}
	s.logger.Info("Saved knowledge base snapshot", zap.String("path", path))
	return nil
}

// LoadSnapshot imports a gob snapshot written by SaveSnapshot.
// It returns os.ErrNotExist when there is no snapshot at path.
func (s *MemoryStore) LoadSnapshot(ctx context.Context, path string) error {
	var data model.KnowledgeBaseData
	if err := persistence.LoadGob(path, &data); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.ErrNotExist
		}
		return fmt.Errorf("failed to load knowledge base snapshot: %w", err)
	}
	return s.Import(ctx, &data, nil)
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
