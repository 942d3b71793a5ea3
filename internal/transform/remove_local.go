package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/shaiso/Poistot/internal/marc"
)

// OpRemoveLocalReference — удаление ссылок библиотеки из записи.
const OpRemoveLocalReference = "REMOVE-LOCAL-REFERENCE"

// RemoveLocalReference удаляет из записи принадлежность библиотеке:
//   - поля LOW с $a = тег (в верхнем регистре)
//   - поля SID с $b = тег (в нижнем регистре), если не BypassTagRemoval
//
// Если задан ExpectedLocalID и проверка не пропущена, в записи должно
// быть поле SID библиотеки с $c = ExpectedLocalID.
type RemoveLocalReference struct{}

// NewRemoveLocalReference создаёт новую операцию.
func NewRemoveLocalReference() *RemoveLocalReference {
	return &RemoveLocalReference{}
}

// Name возвращает имя операции.
func (o *RemoveLocalReference) Name() string {
	return OpRemoveLocalReference
}

// Apply применяет операцию.
func (o *RemoveLocalReference) Apply(_ context.Context, record *marc.Record, opts Options) (Result, error) {
	if err := record.Validate(); err != nil {
		return Result{}, err
	}
	if opts.LibraryTag == "" {
		return Result{}, ErrMissingLibraryTag
	}

	lowTag := strings.ToUpper(opts.LibraryTag)
	sidTag := strings.ToLower(opts.LibraryTag)

	if !opts.SkipLocalIDCheck && opts.ExpectedLocalID != "" && !hasLocalID(record, sidTag, opts.ExpectedLocalID) {
		return Result{}, fmt.Errorf("Record does not have SID for %s with local id %s", lowTag, opts.ExpectedLocalID)
	}

	out := record.Clone()
	var report []string

	removedLow := out.RemoveFields(func(f marc.Field) bool {
		return f.Tag == marc.TagLocalOwner && f.HasSubfield("a", lowTag)
	})
	if len(removedLow) > 0 {
		report = append(report, fmt.Sprintf("Removed LOW: %s", lowTag))
	}

	if !opts.BypassTagRemoval {
		removedSID := out.RemoveFields(func(f marc.Field) bool {
			return f.Tag == marc.TagLocalID && f.HasSubfield("b", sidTag)
		})
		for _, f := range removedSID {
			report = append(report, fmt.Sprintf("Removed SID: %s", strings.Join(f.SubfieldValues("c"), ",")))
		}
	}

	return Result{Record: out, Report: report}, nil
}

// hasLocalID проверяет наличие SID библиотеки с локальным ID.
func hasLocalID(record *marc.Record, sidTag, localID string) bool {
	for _, f := range record.GetFields(marc.TagLocalID) {
		if f.HasSubfield("b", sidTag) && f.HasSubfield("c", localID) {
			return true
		}
	}
	return false
}
