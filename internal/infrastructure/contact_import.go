package infrastructure

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"conexbot/internal/entities"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

var (
	ErrUnsupportedContactFile = errors.New("unsupported contact file, use .csv or .xlsx")
	ErrContactColumns         = errors.New("contact file needs name and phone columns")
)

var contactHeaderAliases = map[string]string{
	"name":     "name",
	"nome":     "name",
	"contact":  "name",
	"contato":  "name",
	"phone":    "phone",
	"telefone": "phone",
	"celular":  "phone",
	"whatsapp": "phone",
	"numero":   "phone",
	"número":   "phone",
}

func normalizeHeader(h string) string {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	if alias, ok := contactHeaderAliases[key]; ok {
		return alias
	}
	return key
}

func hasContactColumns(header []string) bool {
	var name, phone bool
	for _, h := range header {
		switch h {
		case "name":
			name = true
		case "phone":
			phone = true
		}
	}
	return name && phone
}

// ParseContactsFile picks the parser from the file extension. Rows are kept
// in file order, blanks included, so callers can report bad row numbers.
func ParseContactsFile(filename string, r io.Reader) ([]entities.Contact, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return ParseContactsCSV(r)
	case ".xlsx":
		return ParseContactsXLSX(r)
	default:
		return nil, ErrUnsupportedContactFile
	}
}

// aliasReader rewrites the header row so gocsv can bind localized column
// names to the Contact csv tags.
type aliasReader struct {
	r          *csv.Reader
	headerSeen bool
	header     []string
}

func (a *aliasReader) Read() ([]string, error) {
	rec, err := a.r.Read()
	if err != nil {
		return nil, err
	}
	if !a.headerSeen {
		a.headerSeen = true
		for i := range rec {
			rec[i] = normalizeHeader(rec[i])
		}
		a.header = rec
	}
	return rec, nil
}

func (a *aliasReader) ReadAll() ([][]string, error) {
	var out [][]string
	for {
		rec, err := a.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

func ParseContactsCSV(r io.Reader) ([]entities.Contact, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("csv is empty")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	firstLine, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		reader.Comma = ';'
	}

	src := &aliasReader{r: reader}
	var rows []*entities.Contact
	if err := gocsv.UnmarshalCSV(src, &rows); err != nil {
		if !src.headerSeen {
			return nil, errors.Wrap(err, "parse csv")
		}
		if !hasContactColumns(src.header) {
			return nil, ErrContactColumns
		}
		return nil, errors.Wrap(err, "parse csv")
	}
	if !hasContactColumns(src.header) {
		return nil, ErrContactColumns
	}

	contacts := make([]entities.Contact, 0, len(rows))
	for _, row := range rows {
		contacts = append(contacts, trimContact(*row))
	}
	return contacts, nil
}

func ParseContactsXLSX(r io.Reader) ([]entities.Contact, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}

	sheets := book.GetSheetMap()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheets")
	}
	indexes := make([]int, 0, len(sheets))
	for i := range sheets {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	rows := book.GetRows(sheets[indexes[0]])
	for len(rows) > 0 && isBlankRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, errors.New("xlsx is empty")
	}

	nameCol, phoneCol := -1, -1
	for i, h := range rows[0] {
		switch normalizeHeader(h) {
		case "name":
			if nameCol < 0 {
				nameCol = i
			}
		case "phone":
			if phoneCol < 0 {
				phoneCol = i
			}
		}
	}
	if nameCol < 0 || phoneCol < 0 {
		return nil, ErrContactColumns
	}

	// Trailing blank rows are formatting noise, interior ones are kept so
	// they fail validation with their row number.
	body := rows[1:]
	for len(body) > 0 && isBlankRow(body[len(body)-1]) {
		body = body[:len(body)-1]
	}

	contacts := make([]entities.Contact, 0, len(body))
	for _, row := range body {
		contacts = append(contacts, trimContact(entities.Contact{
			Name:  cell(row, nameCol),
			Phone: cell(row, phoneCol),
		}))
	}
	return contacts, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimContact(c entities.Contact) entities.Contact {
	return entities.Contact{Name: strings.TrimSpace(c.Name), Phone: strings.TrimSpace(c.Phone)}
}
