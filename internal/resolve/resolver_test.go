package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Poistot/internal/catalog"
	"github.com/shaiso/Poistot/internal/domain"
	"github.com/shaiso/Poistot/internal/marc"
	"github.com/shaiso/Poistot/internal/xserver"
)

// --- Fakes ---

// fakeSearcher отвечает по префиксу индекса ("sida=", "MIDRR=", "MHOST=").
type fakeSearcher struct {
	mu      sync.Mutex
	answers map[string][]string
	errs    map[string]error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, request string) ([]string, error) {
	f.mu.Lock()
	f.queries = append(f.queries, request)
	f.mu.Unlock()

	index := request[:strings.Index(request, "=")]
	if err, ok := f.errs[index]; ok {
		return nil, err
	}
	ids, ok := f.answers[index]
	if !ok {
		return nil, xserver.ErrEmptySet
	}
	return ids, nil
}

func (f *fakeSearcher) queryFor(index string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.queries {
		if strings.HasPrefix(q, index+"=") {
			return q
		}
	}
	return ""
}

// fakeLoader хранит записи по ID; отсутствующий ID — ошибка загрузки.
type fakeLoader struct {
	records map[string]*marc.Record
}

func (f *fakeLoader) LoadRecord(_ context.Context, id string, _ catalog.LoadOptions) (*marc.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, errors.New("Record not found")
	}
	return rec.Clone(), nil
}

func liveRecord(id string) *marc.Record {
	return &marc.Record{
		Leader: "00000cam a2200000 i 4500",
		Fields: []marc.Field{{Tag: "001", Value: id}},
	}
}

func deletedRecord(id string) *marc.Record {
	rec := liveRecord(id)
	rec.MarkDeleted()
	return rec
}

// --- Resolve Tests ---

func TestResolve_SingleCandidateFromAllSources(t *testing.T) {
	searcher := &fakeSearcher{answers: map[string][]string{
		"sida":  {"000000123"},
		"MIDRR": {"000000123"},
	}}
	loader := &fakeLoader{records: map[string]*marc.Record{"123": liveRecord("123")}}

	r := New(Config{Searcher: searcher, Loader: loader})

	id, err := r.Resolve(context.Background(), Request{
		CatalogID:  "123",
		LocalID:    "555",
		LibraryTag: "TEST",
	})
	require.NoError(t, err)
	assert.Equal(t, "123", id)

	assert.Equal(t, "sida=555test", searcher.queryFor("sida"))
	assert.Equal(t, "MIDRR=000000123", searcher.queryFor("MIDRR"))
}

func TestResolve_LinksQueries(t *testing.T) {
	searcher := &fakeSearcher{answers: map[string][]string{"sida": {"7"}}}
	loader := &fakeLoader{}

	r := New(Config{Searcher: searcher, Loader: loader})

	id, err := r.Resolve(context.Background(), Request{
		LocalID:    "9",
		LibraryTag: "Abc",
		Links:      []string{"42", "43"},
	})
	require.NoError(t, err)
	assert.Equal(t, "7", id)

	assert.Equal(t, "sida=9abc OR sida=FCC000000042abc OR sida=FCC000000043abc", searcher.queryFor("sida"))
	assert.Equal(t, "MIDRR=000000042 OR MIDRR=000000043", searcher.queryFor("MIDRR"))
}

func TestResolve_ZeroCandidates(t *testing.T) {
	searcher := &fakeSearcher{}
	loader := &fakeLoader{}

	r := New(Config{Searcher: searcher, Loader: loader})

	_, err := r.Resolve(context.Background(), Request{LocalID: "1", LibraryTag: "TEST"})

	var are *domain.AmbiguousResolutionError
	require.ErrorAs(t, err, &are)
	assert.Empty(t, are.Candidates)
	assert.Equal(t, "Resolved into 0 records.", err.Error())
}

func TestResolve_MultipleCandidates(t *testing.T) {
	searcher := &fakeSearcher{answers: map[string][]string{
		"sida":  {"000000012"},
		"MIDRR": {"000000011"},
	}}
	loader := &fakeLoader{}

	r := New(Config{Searcher: searcher, Loader: loader})

	_, err := r.Resolve(context.Background(), Request{CatalogID: "11", LocalID: "5", LibraryTag: "TEST"})

	var are *domain.AmbiguousResolutionError
	require.ErrorAs(t, err, &are)
	assert.Equal(t, []string{"11", "12"}, are.Candidates)
	assert.Equal(t, "Resolved into multiple records: 11, 12", err.Error())
}

func TestResolve_DeletedRecordIsNotCandidate(t *testing.T) {
	searcher := &fakeSearcher{}
	loader := &fakeLoader{records: map[string]*marc.Record{
		"20": deletedRecord("20"),
		"21": liveRecord("21"),
	}}

	r := New(Config{Searcher: searcher, Loader: loader})

	id, err := r.Resolve(context.Background(), Request{
		CatalogID:  "20",
		LibraryTag: "TEST",
		Links:      []string{"21"},
	})
	require.NoError(t, err)
	assert.Equal(t, "21", id)
}

func TestResolve_LoadErrorIsNotFailure(t *testing.T) {
	searcher := &fakeSearcher{answers: map[string][]string{"MIDRR": {"30"}}}
	loader := &fakeLoader{}

	r := New(Config{Searcher: searcher, Loader: loader})

	id, err := r.Resolve(context.Background(), Request{CatalogID: "30", LibraryTag: "TEST"})
	require.NoError(t, err)
	assert.Equal(t, "30", id)
}

func TestResolve_IndexErrorPropagates(t *testing.T) {
	indexErr := &xserver.Error{Op: "find", Message: "syntax error"}
	searcher := &fakeSearcher{errs: map[string]error{"MIDRR": indexErr}}
	loader := &fakeLoader{records: map[string]*marc.Record{"1": liveRecord("1")}}

	r := New(Config{Searcher: searcher, Loader: loader})

	_, err := r.Resolve(context.Background(), Request{CatalogID: "1", LibraryTag: "TEST"})
	assert.ErrorIs(t, err, indexErr)
	assert.Equal(t, domain.KindRecordProcessing, domain.KindOf(err))
}

func TestResolve_MalformedIndexResponseIsNotEmptySet(t *testing.T) {
	malformed := fmt.Errorf("find %q: %w", "MIDRR=000000001", xserver.ErrMalformedResponse)
	searcher := &fakeSearcher{
		answers: map[string][]string{"sida": {"2"}},
		errs:    map[string]error{"MIDRR": malformed},
	}
	loader := &fakeLoader{}

	r := New(Config{Searcher: searcher, Loader: loader})

	id, err := r.Resolve(context.Background(), Request{CatalogID: "1", LocalID: "5", LibraryTag: "TEST"})
	assert.Empty(t, id)
	assert.ErrorIs(t, err, xserver.ErrMalformedResponse)
}

func TestResolve_SkipsLocalIndexWithoutInputs(t *testing.T) {
	searcher := &fakeSearcher{answers: map[string][]string{"MIDRR": {"5"}}}
	loader := &fakeLoader{}

	r := New(Config{Searcher: searcher, Loader: loader})

	_, err := r.Resolve(context.Background(), Request{CatalogID: "5", LibraryTag: "TEST"})
	require.NoError(t, err)
	assert.Empty(t, searcher.queryFor("sida"))
}

func TestResolve_MissingLibraryTag(t *testing.T) {
	r := New(Config{Searcher: &fakeSearcher{}, Loader: &fakeLoader{}})

	_, err := r.Resolve(context.Background(), Request{CatalogID: "1"})
	assert.ErrorIs(t, err, ErrMissingLibraryTag)
}

func TestResolve_CustomIndexes(t *testing.T) {
	searcher := &fakeSearcher{answers: map[string][]string{"XREF": {"8"}}}

	r := New(Config{
		Searcher: searcher,
		Loader:   &fakeLoader{},
		Indexes:  Indexes{CrossRef: "XREF"},
	})

	id, err := r.Resolve(context.Background(), Request{CatalogID: "8", LibraryTag: "TEST"})
	require.NoError(t, err)
	assert.Equal(t, "8", id)
	assert.Equal(t, "XREF=000000008", searcher.queryFor("XREF"))
}

// --- FindComponentIDs Tests ---

func TestFindComponentIDs(t *testing.T) {
	searcher := &fakeSearcher{answers: map[string][]string{
		"MHOST": {"000000101", "000000100", "000000101"},
	}}
	r := New(Config{Searcher: searcher, Loader: &fakeLoader{}})

	ids, err := r.FindComponentIDs(context.Background(), "77")
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "101"}, ids)
	assert.Equal(t, "MHOST=000000077", searcher.queryFor("MHOST"))
}

func TestFindComponentIDs_EmptySet(t *testing.T) {
	r := New(Config{Searcher: &fakeSearcher{}, Loader: &fakeLoader{}})

	ids, err := r.FindComponentIDs(context.Background(), "77")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// --- Helper Tests ---

func TestPadID(t *testing.T) {
	assert.Equal(t, "000000042", PadID("42"))
	assert.Equal(t, "123456789", PadID("123456789"))
	assert.Equal(t, "1234567890", PadID("1234567890"))
}

func TestCanonicalID(t *testing.T) {
	assert.Equal(t, "123", CanonicalID("000000123"))
	assert.Equal(t, "123", CanonicalID(" 123 "))
	assert.Equal(t, "0", CanonicalID("000"))
	assert.Equal(t, "", CanonicalID(""))
}

func TestNormalizeLinks(t *testing.T) {
	got := NormalizeLinks([]string{"fcc000123", " 456 ", "", "FCC789"})
	assert.Equal(t, []string{"000123", "456", "789"}, got)
}
