// Package transform содержит операции изменения записей каталога.
//
// Операции регистрируются в Registry по имени и вызываются
// Orchestrator'ом через Transform:
//
//	registry := transform.DefaultRegistry()
//	result, err := registry.Transform(ctx, transform.OpRemoveLocalReference, record, opts)
//
// Операция возвращает новую запись и журнал изменений (Result.Report),
// который добавляется в отчёт task. Входная запись не изменяется,
// поэтому вызывающий код может сравнить запись до и после.
package transform
