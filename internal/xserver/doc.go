// Package xserver — клиент поискового протокола индексов каталога (X-server).
//
// Поиск выполняется в два шага:
//
//	GET /X?op=find&request=<запрос>&base=<база>
//	  → <find><set_number>..</set_number><no_entries>..</no_entries></find>
//	  → <find><error>empty set</error></find>
//	GET /X?op=present&set_number=<n>&set_entry=1-<no_entries>
//	  → <present><record><doc_number>..</doc_number></record>...</present>
//
// Ошибка "empty set" — это пустой результат, а не сбой: клиент
// возвращает для неё ErrEmptySet, все остальные — *Error.
package xserver
