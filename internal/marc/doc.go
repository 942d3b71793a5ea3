// Package marc — модель библиографической записи (MARC) в объёме,
// нужном для удаления локальных ссылок: лидер, поля, подполя,
// признаки удаления и ссылки компонент → host.
//
// JSON-форма записи совпадает с той, что отдаёт API каталога:
//
//	{"leader": "...", "fields": [{"tag": "001", "value": "123"},
//	  {"tag": "LOW", "ind1": " ", "ind2": " ", "subfields": [{"code": "a", "value": "TEST"}]}]}
package marc
