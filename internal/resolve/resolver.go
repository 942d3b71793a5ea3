package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Poistot/internal/catalog"
	"github.com/shaiso/Poistot/internal/domain"
	"github.com/shaiso/Poistot/internal/marc"
	"github.com/shaiso/Poistot/internal/xserver"
)

// Default configuration values.
const (
	defaultLocalIDIndex   = "sida"
	defaultCrossRefIndex  = "MIDRR"
	defaultComponentIndex = "MHOST"

	idWidth    = 9
	linkPrefix = "FCC"
)

// ErrMissingLibraryTag — тег библиотеки обязателен для поиска по локальному ID.
var ErrMissingLibraryTag = errors.New("library tag cannot be empty")

// IndexSearcher — поиск по индексу каталога (find + present).
// Пустая выборка сообщается как xserver.ErrEmptySet.
type IndexSearcher interface {
	Search(ctx context.Context, request string) ([]string, error)
}

// RecordLoader — загрузка записи для проверки её существования.
type RecordLoader interface {
	LoadRecord(ctx context.Context, id string, opts catalog.LoadOptions) (*marc.Record, error)
}

// Indexes — имена индексов каталога.
type Indexes struct {
	LocalID   string // локальный ID + тег библиотеки (default: sida)
	CrossRef  string // перекрёстные ссылки на ID каталога (default: MIDRR)
	Component string // ссылки компонентов на host-запись (default: MHOST)
}

// Request — подсказки для определения ID записи.
type Request struct {
	CatalogID  string
	LocalID    string
	LibraryTag string
	Links      []string
}

// Resolver определяет канонический ID записи по неоднозначным подсказкам.
//
// Три независимых источника опрашиваются параллельно:
//   - индекс локальных ID (localId + тег, либо ссылки FCC + тег)
//   - индекс перекрёстных ссылок (ID каталога и ссылки)
//   - прямая загрузка записей (ID каталога и ссылки), не удалённые — кандидаты
//
// Результаты объединяются как множество, кандидат должен остаться ровно один.
type Resolver struct {
	searcher IndexSearcher
	loader   RecordLoader
	indexes  Indexes
	logger   *slog.Logger
}

// Config — конфигурация Resolver.
type Config struct {
	Searcher IndexSearcher
	Loader   RecordLoader
	Indexes  Indexes
	Logger   *slog.Logger
}

// New создаёт новый Resolver.
func New(cfg Config) *Resolver {
	indexes := cfg.Indexes
	if indexes.LocalID == "" {
		indexes.LocalID = defaultLocalIDIndex
	}
	if indexes.CrossRef == "" {
		indexes.CrossRef = defaultCrossRefIndex
	}
	if indexes.Component == "" {
		indexes.Component = defaultComponentIndex
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		searcher: cfg.Searcher,
		loader:   cfg.Loader,
		indexes:  indexes,
		logger:   logger,
	}
}

// Resolve возвращает единственный ID записи.
//
// 0 или больше одного кандидата — *domain.AmbiguousResolutionError.
// Ошибки индексов (кроме пустой выборки) возвращаются как есть.
func (r *Resolver) Resolve(ctx context.Context, req Request) (string, error) {
	if req.LibraryTag == "" {
		return "", ErrMissingLibraryTag
	}

	var localHits, crossRefHits, validHits []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		localHits, err = r.queryLocalID(gctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		crossRefHits, err = r.queryCrossRef(gctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		validHits, err = r.queryValidRecords(gctx, req)
		return err
	})

	if err := g.Wait(); err != nil {
		return "", err
	}

	candidates := union(localHits, crossRefHits, validHits)

	r.logger.Debug("record id resolved",
		"local_id_hits", len(localHits),
		"cross_ref_hits", len(crossRefHits),
		"valid_hits", len(validHits),
		"candidates", candidates,
	)

	if len(candidates) != 1 {
		return "", &domain.AmbiguousResolutionError{Candidates: candidates}
	}
	return candidates[0], nil
}

// FindComponentIDs возвращает ID компонентных записей host-записи.
func (r *Resolver) FindComponentIDs(ctx context.Context, recordID string) ([]string, error) {
	query := fmt.Sprintf("%s=%s", r.indexes.Component, PadID(recordID))

	ids, err := r.search(ctx, query)
	if err != nil {
		return nil, err
	}
	return union(ids), nil
}

// queryLocalID опрашивает индекс локальных ID.
func (r *Resolver) queryLocalID(ctx context.Context, req Request) ([]string, error) {
	tag := strings.ToLower(req.LibraryTag)

	var terms []string
	if req.LocalID != "" {
		terms = append(terms, fmt.Sprintf("%s=%s%s", r.indexes.LocalID, req.LocalID, tag))
	}
	for _, link := range req.Links {
		terms = append(terms, fmt.Sprintf("%s=%s%s%s", r.indexes.LocalID, linkPrefix, PadID(link), tag))
	}

	if len(terms) == 0 {
		return nil, nil
	}
	return r.search(ctx, strings.Join(terms, " OR "))
}

// queryCrossRef опрашивает индекс перекрёстных ссылок.
func (r *Resolver) queryCrossRef(ctx context.Context, req Request) ([]string, error) {
	ids := catalogIDs(req)
	if len(ids) == 0 {
		return nil, nil
	}

	terms := make([]string, len(ids))
	for i, id := range ids {
		terms[i] = fmt.Sprintf("%s=%s", r.indexes.CrossRef, PadID(id))
	}
	return r.search(ctx, strings.Join(terms, " OR "))
}

// queryValidRecords загружает записи напрямую: кандидат — запись,
// которая загрузилась и не помечена удалённой. Ошибка загрузки
// означает "не кандидат", а не сбой поиска.
func (r *Resolver) queryValidRecords(ctx context.Context, req Request) ([]string, error) {
	ids := catalogIDs(req)
	if len(ids) == 0 {
		return nil, nil
	}

	valid := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			rec, err := r.loader.LoadRecord(gctx, id, catalog.LoadOptions{})
			if err != nil {
				r.logger.Debug("record is not a valid candidate", "record_id", id, "error", err)
				return nil
			}
			valid[i] = rec.Validate() == nil && !rec.IsDeleted()
			return nil
		})
	}
	g.Wait()

	var hits []string
	for i, id := range ids {
		if valid[i] {
			hits = append(hits, id)
		}
	}
	return hits, nil
}

// search выполняет запрос; пустая выборка — ноль результатов.
func (r *Resolver) search(ctx context.Context, query string) ([]string, error) {
	ids, err := r.searcher.Search(ctx, query)
	if errors.Is(err, xserver.ErrEmptySet) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// catalogIDs — ID каталога (если есть) и ссылки.
func catalogIDs(req Request) []string {
	var ids []string
	if req.CatalogID != "" {
		ids = append(ids, req.CatalogID)
	}
	return append(ids, req.Links...)
}

// union объединяет списки ID как множество канонических ID.
func union(lists ...[]string) []string {
	var out []string
	for _, list := range lists {
		for _, id := range list {
			id = CanonicalID(id)
			if id != "" && !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
	}
	slices.Sort(out)
	return out
}

// PadID дополняет ID нулями слева до 9 символов.
func PadID(id string) string {
	if len(id) >= idWidth {
		return id
	}
	return strings.Repeat("0", idWidth-len(id)) + id
}

// CanonicalID убирает ведущие нули: "000000123" и "123" — одна запись.
func CanonicalID(id string) string {
	id = strings.TrimSpace(id)
	trimmed := strings.TrimLeft(id, "0")
	if trimmed == "" && id != "" {
		return "0"
	}
	return trimmed
}

// NormalizeLinks приводит ссылки к верхнему регистру и убирает префикс FCC.
func NormalizeLinks(links []string) []string {
	out := make([]string, 0, len(links))
	for _, link := range links {
		link = strings.ToUpper(strings.TrimSpace(link))
		link = strings.TrimPrefix(link, linkPrefix)
		if link != "" {
			out = append(out, link)
		}
	}
	return out
}
