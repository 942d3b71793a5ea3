package marc

import (
	"errors"
	"slices"
	"strings"
)

// ErrInvalidRecord — запись без лидера или без полей.
var ErrInvalidRecord = errors.New("Invalid record")

// Теги полей, с которыми работает система.
const (
	TagLocalOwner = "LOW" // принадлежность записи локальной библиотеке
	TagLocalID    = "SID" // локальный ID записи в библиотеке
	TagStatus     = "STA" // статус записи
	TagHostLink   = "773" // ссылка компонента на host-запись
	TagClass      = "960" // классификационная пометка
)

// Subfield — подполе поля данных.
type Subfield struct {
	Code  string `json:"code"`
	Value string `json:"value"`
}

// Field — поле записи.
//
// Управляющее поле (001–009) хранит Value, поле данных — индикаторы и подполя.
type Field struct {
	Tag       string     `json:"tag"`
	Ind1      string     `json:"ind1,omitempty"`
	Ind2      string     `json:"ind2,omitempty"`
	Value     string     `json:"value,omitempty"`
	Subfields []Subfield `json:"subfields,omitempty"`
}

// IsControlField возвращает true для управляющего поля.
func (f *Field) IsControlField() bool {
	return len(f.Subfields) == 0 && f.Value != ""
}

// SubfieldValues возвращает значения подполей с заданным кодом.
func (f *Field) SubfieldValues(code string) []string {
	var values []string
	for _, sf := range f.Subfields {
		if sf.Code == code {
			values = append(values, sf.Value)
		}
	}
	return values
}

// HasSubfield проверяет наличие подполя code=value.
func (f *Field) HasSubfield(code, value string) bool {
	return slices.Contains(f.SubfieldValues(code), value)
}

// Record — библиографическая запись сводного каталога.
type Record struct {
	Leader string  `json:"leader"`
	Fields []Field `json:"fields"`
}

// Validate проверяет минимальную структуру записи.
func (r *Record) Validate() error {
	if r == nil || r.Leader == "" || len(r.Fields) == 0 {
		return ErrInvalidRecord
	}
	return nil
}

// Clone возвращает глубокую копию записи.
func (r *Record) Clone() *Record {
	c := &Record{Leader: r.Leader, Fields: make([]Field, len(r.Fields))}
	for i, f := range r.Fields {
		f.Subfields = slices.Clone(f.Subfields)
		c.Fields[i] = f
	}
	return c
}

// GetFields возвращает поля с заданным тегом.
func (r *Record) GetFields(tag string) []Field {
	var fields []Field
	for _, f := range r.Fields {
		if f.Tag == tag {
			fields = append(fields, f)
		}
	}
	return fields
}

// ControlFieldValue возвращает значение первого управляющего поля с тегом.
func (r *Record) ControlFieldValue(tag string) string {
	for _, f := range r.Fields {
		if f.Tag == tag {
			return f.Value
		}
	}
	return ""
}

// ContainsFieldWithValue проверяет наличие поля tag с подполем code=value.
func (r *Record) ContainsFieldWithValue(tag, code, value string) bool {
	for _, f := range r.Fields {
		if f.Tag == tag && f.HasSubfield(code, value) {
			return true
		}
	}
	return false
}

// RemoveFields удаляет поля, для которых match возвращает true.
// Возвращает удалённые поля.
func (r *Record) RemoveFields(match func(Field) bool) []Field {
	var removed []Field
	kept := r.Fields[:0]
	for _, f := range r.Fields {
		if match(f) {
			removed = append(removed, f)
			continue
		}
		kept = append(kept, f)
	}
	r.Fields = kept
	return removed
}

// AppendField добавляет поле в конец записи.
func (r *Record) AppendField(f Field) {
	r.Fields = append(r.Fields, f)
}

// IsDeleted возвращает true, если запись помечена удалённой.
//
// Признаки: статус 'd' в позиции 5 лидера или STA $a DELETED.
func (r *Record) IsDeleted() bool {
	if len(r.Leader) > 5 && r.Leader[5] == 'd' {
		return true
	}
	return r.ContainsFieldWithValue(TagStatus, "a", "DELETED")
}

// MarkDeleted помечает запись удалённой.
func (r *Record) MarkDeleted() {
	if len(r.Leader) > 5 {
		r.Leader = r.Leader[:5] + "d" + r.Leader[6:]
	}
	if !r.ContainsFieldWithValue(TagStatus, "a", "DELETED") {
		r.AppendField(Field{
			Tag:       TagStatus,
			Ind1:      " ",
			Ind2:      " ",
			Subfields: []Subfield{{Code: "a", Value: "DELETED"}},
		})
	}
}

// IsUnused возвращает true, если запись не принадлежит ни одной библиотеке.
func (r *Record) IsUnused() bool {
	return len(r.GetFields(TagLocalOwner)) == 0
}

// HasClassification проверяет наличие пометки 960 $a с одним из значений.
func (r *Record) HasClassification(values ...string) bool {
	for _, v := range values {
		if r.ContainsFieldWithValue(TagClass, "a", v) {
			return true
		}
	}
	return false
}

// HasHostLink возвращает true, если запись — компонент (есть поле 773).
func (r *Record) HasHostLink() bool {
	return len(r.GetFields(TagHostLink)) > 0
}

// HostLinks возвращает уникальные ID host-записей из 773 $w
// с префиксом пространства имён каталога (например, "(FI-MELINDA)").
// Из каждого поля берётся первая подходящая ссылка.
func (r *Record) HostLinks(namespace string) []string {
	var links []string
	for _, f := range r.GetFields(TagHostLink) {
		for _, w := range f.SubfieldValues("w") {
			if !strings.HasPrefix(w, namespace) {
				continue
			}
			id := strings.TrimPrefix(w, namespace)
			if !slices.Contains(links, id) {
				links = append(links, id)
			}
			break
		}
	}
	return links
}

// String возвращает каноническое текстовое представление записи.
// Используется для сравнения записей до и после изменения.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteString("LDR    ")
	b.WriteString(r.Leader)
	b.WriteByte('\n')

	for _, f := range r.Fields {
		b.WriteString(f.Tag)
		if f.IsControlField() {
			b.WriteString("    ")
			b.WriteString(f.Value)
			b.WriteByte('\n')
			continue
		}

		b.WriteByte(' ')
		b.WriteString(indicator(f.Ind1))
		b.WriteString(indicator(f.Ind2))
		b.WriteByte(' ')
		for _, sf := range f.Subfields {
			b.WriteString("‡")
			b.WriteString(sf.Code)
			b.WriteString(sf.Value)
		}
		b.WriteByte('\n')
	}

	return b.String()
}

func indicator(ind string) string {
	if ind == "" {
		return " "
	}
	return ind
}
