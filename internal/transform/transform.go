package transform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/Poistot/internal/marc"
)

// Ошибки трансформации.
var (
	// ErrOperationNotFound — операция не зарегистрирована.
	ErrOperationNotFound = errors.New("transform operation not found")

	// ErrMissingLibraryTag — тег библиотеки не задан.
	ErrMissingLibraryTag = errors.New("library tag cannot be empty")
)

// Options — параметры операции.
type Options struct {
	// DeleteUnusedRecords — запись будет удалена, если станет ничьей.
	DeleteUnusedRecords bool

	// SkipLocalIDCheck — не проверять наличие ожидаемого локального ID.
	SkipLocalIDCheck bool

	// LibraryTag — тег библиотеки (LOW).
	LibraryTag string

	// ExpectedLocalID — локальный ID записи в библиотеке.
	ExpectedLocalID string

	// BypassTagRemoval — не удалять поля SID библиотеки.
	BypassTagRemoval bool
}

// Result — изменённая запись и журнал изменений.
type Result struct {
	Record *marc.Record
	Report []string
}

// Operation — именованная трансформация записи.
//
// Операция не изменяет входную запись: результат — новая запись.
type Operation interface {
	// Name возвращает имя операции.
	Name() string

	// Apply применяет операцию к записи.
	Apply(ctx context.Context, record *marc.Record, opts Options) (Result, error)
}

// Registry — реестр операций трансформации.
//
// Потокобезопасен.
type Registry struct {
	mu         sync.RWMutex
	operations map[string]Operation
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		operations: make(map[string]Operation),
	}
}

// DefaultRegistry создаёт реестр со стандартными операциями.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewRemoveLocalReference())
	return r
}

// Register регистрирует операцию.
// Операция с таким же именем перезаписывается.
func (r *Registry) Register(op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[op.Name()] = op
}

// Get возвращает операцию по имени.
func (r *Registry) Get(name string) (Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, exists := r.operations[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, name)
	}
	return op, nil
}

// Names возвращает имена зарегистрированных операций.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.operations))
	for name := range r.operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Transform находит операцию и применяет её к записи.
func (r *Registry) Transform(ctx context.Context, operation string, record *marc.Record, opts Options) (Result, error) {
	op, err := r.Get(operation)
	if err != nil {
		return Result{}, err
	}

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	return op.Apply(ctx, record, opts)
}
