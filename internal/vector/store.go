package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/seikyu/internal/embedding"
	"github.com/hyperjump/seikyu/internal/models"
	"github.com/hyperjump/seikyu/internal/storage"
	"github.com/hyperjump/seikyu/pkg/utils"
)

// Store ties the vector index to the record store: each saved record is
// rendered to text, embedded once, and recalled by semantic similarity.
// Entries are keyed by business key (invoice number, else normalized PO
// number) so re-indexing the same record is a no-op.
type Store struct {
	index    *MemoryIndex
	embedder embedding.Embedder
	records  storage.RecordStore
	path     string
	logger   *zap.Logger

	mu    sync.Mutex
	texts map[string]string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for index lifecycle warnings.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a record vector store persisting its snapshot at path.
// Pass an empty path to keep the index memory-only.
func NewStore(embedder embedding.Embedder, records storage.RecordStore, path string, opts ...StoreOption) (*Store, error) {
	index, err := NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	s := &Store{
		index:    index,
		embedder: embedder,
		records:  records,
		path:     path,
		logger:   zap.NewNop(),
		texts:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) metaPath() string {
	if s.path == "" {
		return ""
	}
	return s.path + ".meta.json"
}

// Initialize loads the persisted snapshot if one exists, otherwise rebuilds
// the index from every record in the record store. Call once at startup.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		if _, err := os.Stat(s.path); err == nil {
			loadErr := s.loadSnapshot()
			if loadErr == nil {
				s.logger.Info("vector index loaded from snapshot",
					zap.String("path", s.path), zap.Int("entries", s.index.Size()))
				return nil
			}
			s.logger.Warn("snapshot load failed, rebuilding index", zap.Error(loadErr))
		}
	}
	return s.rebuild(ctx)
}

func (s *Store) loadSnapshot() error {
	data, err := os.ReadFile(s.metaPath())
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}
	texts := make(map[string]string)
	if err := json.Unmarshal(data, &texts); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	if err := s.index.Load(s.path); err != nil {
		return err
	}
	if s.index.Size() != len(texts) {
		return fmt.Errorf("snapshot inconsistent: %d vectors, %d metadata entries", s.index.Size(), len(texts))
	}
	s.texts = texts
	return nil
}

func (s *Store) rebuild(ctx context.Context) error {
	invoices, err := s.records.GetAllInvoices(ctx)
	if err != nil {
		return fmt.Errorf("load invoices: %w", err)
	}
	purchaseOrders, err := s.records.GetAllPurchaseOrders(ctx)
	if err != nil {
		return fmt.Errorf("load purchase orders: %w", err)
	}
	for _, rec := range append(invoices, purchaseOrders...) {
		if err := s.add(ctx, rec); err != nil {
			s.logger.Warn("skipping record during index rebuild",
				zap.String("po_number", models.Deref(rec.PONumber)), zap.Error(err))
		}
	}
	s.persist()
	s.logger.Info("vector index rebuilt from record store", zap.Int("entries", s.index.Size()))
	return nil
}

// Add indexes a record. Records already indexed under the same business key
// are left untouched. Snapshot write failures are logged, not returned: the
// in-memory index stays authoritative for the running process.
func (s *Store) Add(ctx context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.add(ctx, rec); err != nil {
		return err
	}
	s.persist()
	return nil
}

func (s *Store) add(ctx context.Context, rec *models.Record) error {
	key := rec.BusinessKey()
	if key == "" {
		return fmt.Errorf("record has no business key")
	}
	if _, exists := s.texts[key]; exists {
		s.logger.Debug("record already indexed", zap.String("business_key", key))
		return nil
	}

	text := RenderRecord(rec)
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed record: %w", err)
	}
	utils.NormalizeL2(vec)
	if err := s.index.Add(ctx, []string{key}, [][]float32{vec}); err != nil {
		return err
	}
	s.texts[key] = text
	return nil
}

// Query embeds the query text, recalls the top-k entries by inner product,
// and returns their rendered record texts ordered by lexical similarity to
// the query. The lexical pass decides the final order; vector recall only
// picks the candidates.
func (s *Store) Query(ctx context.Context, query string, k int) ([]string, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	utils.NormalizeL2(vec)

	results, err := s.index.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	candidates := make([]string, 0, len(results))
	for _, r := range results {
		if text, ok := s.texts[r.ID]; ok {
			candidates = append(candidates, text)
		}
	}
	s.mu.Unlock()

	return rerank(query, candidates), nil
}

// Size returns the number of indexed records.
func (s *Store) Size() int {
	return s.index.Size()
}

// Persist writes the current snapshot to disk. Used at shutdown; Add and
// Initialize persist on their own.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeSnapshot()
}

// persist is the warn-only variant used on the write path.
func (s *Store) persist() {
	if err := s.writeSnapshot(); err != nil {
		s.logger.Warn("vector snapshot write failed", zap.Error(err))
	}
}

func (s *Store) writeSnapshot() error {
	if s.path == "" {
		return nil
	}
	if err := s.index.Save(s.path); err != nil {
		return err
	}
	data, err := json.Marshal(s.texts)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.metaPath()), 0755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	if err := os.WriteFile(s.metaPath(), data, 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
