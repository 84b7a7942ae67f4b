package allocator

import (
	"context"
	"sync"

	"github.com/koopa0/shortcore/internal/store"
)

// fakeStore is an in-memory store.Store used by tests that exercise the
// Allocator without a live PostgreSQL instance.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	byHash   map[[32]byte]*store.URLRecord
	byCode   map[string]int64 // code -> id, primary namespace
	byAlias  map[string]int64 // alias -> target id
	snapshot map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byHash:   make(map[[32]byte]*store.URLRecord),
		byCode:   make(map[string]int64),
		byAlias:  make(map[string]int64),
		snapshot: make(map[string][]byte),
	}
}

func (f *fakeStore) FindURLByHash(ctx context.Context, hash [32]byte) (*store.URLRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.byHash[hash]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) namespaceConflict(code string) bool {
	if _, ok := f.byAlias[code]; ok {
		return true
	}
	if _, ok := f.byCode[code]; ok {
		return true
	}
	return false
}

func (f *fakeStore) InsertURL(ctx context.Context, code, url string, hash [32]byte) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.namespaceConflict(code) {
		return 0, &store.Error{Kind: store.KindCodeExists}
	}
	for _, rec := range f.byHash {
		if rec.URL == url {
			return 0, &store.Error{Kind: store.KindUrlHashExists}
		}
	}

	f.nextID++
	id := f.nextID
	f.byHash[hash] = &store.URLRecord{ID: id, Code: code, URL: url}
	f.byCode[code] = id
	return id, nil
}

func (f *fakeStore) InsertURLWithAlias(ctx context.Context, code, url string, hash [32]byte, aliasValue string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.namespaceConflict(code) {
		return 0, &store.Error{Kind: store.KindCodeExists}
	}
	for _, rec := range f.byHash {
		if rec.URL == url {
			return 0, &store.Error{Kind: store.KindUrlHashExists}
		}
	}
	if f.namespaceConflict(aliasValue) {
		return 0, &store.Error{Kind: store.KindAliasExists}
	}

	f.nextID++
	id := f.nextID
	f.byHash[hash] = &store.URLRecord{ID: id, Code: code, URL: url}
	f.byCode[code] = id
	f.byAlias[aliasValue] = id
	return id, nil
}

func (f *fakeStore) InsertAlias(ctx context.Context, aliasValue string, targetID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.namespaceConflict(aliasValue) {
		return &store.Error{Kind: store.KindAliasExists}
	}
	f.byAlias[aliasValue] = targetID
	return nil
}

func (f *fakeStore) Resolve(ctx context.Context, code string) (string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows := 0
	url := ""
	if id, ok := f.byCode[code]; ok {
		rows++
		for _, rec := range f.byHash {
			if rec.ID == id {
				url = rec.URL
			}
		}
	}
	if id, ok := f.byAlias[code]; ok {
		rows++
		for _, rec := range f.byHash {
			if rec.ID == id {
				url = rec.URL
			}
		}
	}
	return url, rows, nil
}

func (f *fakeStore) ScanCodes(ctx context.Context, fn func(code string) error) error {
	f.mu.Lock()
	codes := make([]string, 0, len(f.byCode)+len(f.byAlias))
	for c := range f.byCode {
		codes = append(codes, c)
	}
	for a := range f.byAlias {
		codes = append(codes, a)
	}
	f.mu.Unlock()

	for _, c := range codes {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) MaxPrimaryCode(ctx context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var maxCode string
	var maxID int64
	found := false
	for code, id := range f.byCode {
		if !found || id > maxID {
			maxCode, maxID, found = code, id, true
		}
	}
	return maxCode, found, nil
}

func (f *fakeStore) SaveSnapshot(ctx context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot[name] = append([]byte(nil), data...)
	return nil
}

func (f *fakeStore) LoadSnapshot(ctx context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot[name], nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                   { return nil }
