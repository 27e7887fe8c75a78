package infrastructure

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"conexbot/internal/entities"

	"github.com/360EntSecGroup-Skylar/excelize"
)

func TestParseContactsCSV(t *testing.T) {
	in := "Nome,Telefone\nAna, 5511999990000\nBruno,5521988887777\n"
	got, err := ParseContactsCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []entities.Contact{{Name: "Ana", Phone: "5511999990000"}, {Name: "Bruno", Phone: "5521988887777"}}
	if len(got) != len(want) {
		t.Fatalf("got %d contacts, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("contact %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseContactsCSVSemicolon(t *testing.T) {
	in := "name;phone;notes\nCarla;5531977776666;vip\nDaniel;;\n"
	got, err := ParseContactsCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Carla" || got[1].Phone != "" {
		t.Errorf("unexpected contacts %+v", got)
	}
}

func TestParseContactsCSVMissingColumns(t *testing.T) {
	_, err := ParseContactsCSV(strings.NewReader("first,last\na,b\n"))
	if !errors.Is(err, ErrContactColumns) {
		t.Errorf("err = %v, want ErrContactColumns", err)
	}
}

func TestParseContactsFileRejectsUnknownExtension(t *testing.T) {
	if _, err := ParseContactsFile("contacts.pdf", strings.NewReader("x")); !errors.Is(err, ErrUnsupportedContactFile) {
		t.Errorf("err = %v", err)
	}
}

func TestParseContactsXLSX(t *testing.T) {
	book := excelize.NewFile()
	book.SetCellValue("Sheet1", "A1", "Telefone")
	book.SetCellValue("Sheet1", "B1", "Nome")
	book.SetCellValue("Sheet1", "A2", "5511999990000")
	book.SetCellValue("Sheet1", "B2", "Ana")
	book.SetCellValue("Sheet1", "A3", "5521988887777")
	book.SetCellValue("Sheet1", "B3", "")

	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	got, err := ParseContactsFile("lista.xlsx", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d contacts, want 2: %+v", len(got), got)
	}
	if got[0] != (entities.Contact{Name: "Ana", Phone: "5511999990000"}) {
		t.Errorf("first contact = %+v", got[0])
	}
	if got[1].Valid() {
		t.Errorf("second contact should be invalid: %+v", got[1])
	}
}
