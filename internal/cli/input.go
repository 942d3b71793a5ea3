package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// linkPrefix — префикс ссылки на запись сводного каталога.
const linkPrefix = "FCC"

// ParseRecordList читает список записей, по одной на строку.
//
// Формат строки: <localId> [FCC<id> ...]. Токены с префиксом FCC — ссылки.
// Если catalogIDs=true, одиночный ID в строке считается ID сводного
// каталога, а не локальным. Пустые строки и строки с # пропускаются.
func ParseRecordList(r io.Reader, catalogIDs bool) ([]RecordHints, error) {
	var records []RecordHints

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var hints RecordHints
		for _, token := range strings.FieldsFunc(line, isSeparator) {
			if strings.HasPrefix(strings.ToUpper(token), linkPrefix) {
				hints.Links = append(hints.Links, token)
				continue
			}
			if hints.LocalID != "" || hints.CatalogID != "" {
				return nil, fmt.Errorf("line %d: more than one record id in %q", lineNo, line)
			}
			if catalogIDs {
				hints.CatalogID = token
			} else {
				hints.LocalID = token
			}
		}

		records = append(records, hints)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read record list: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("record list is empty")
	}
	return records, nil
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '\t' || r == ',' || r == ';'
}
