// Package resolve определяет канонический ID записи сводного каталога.
//
// Индексы каталога обновляются с задержкой и не всегда согласованы,
// поэтому ID ищется сразу в трёх источниках (параллельно, через errgroup):
//
//  1. индекс локальных ID: sida=<localId><тег> OR sida=FCC<ссылка, 9 цифр><тег>
//  2. индекс перекрёстных ссылок: MIDRR=<ID, 9 цифр> для ID каталога и ссылок
//  3. прямая загрузка записей по ID каталога и ссылкам (не удалённые — кандидаты)
//
// Источник без входных данных пропускается. Кандидаты объединяются
// как множество (ведущие нули не различаются), результат должен быть ровно один:
//
//	Resolved into 0 records.
//	Resolved into multiple records: 11, 12
//
// FindComponentIDs ищет компонентные записи host-записи по индексу MHOST.
package resolve
