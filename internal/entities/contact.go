package entities

import "strings"

type Contact struct {
	Name  string `json:"name" csv:"name"`
	Phone string `json:"phone" csv:"phone"`
}

func (c Contact) Valid() bool {
	return strings.TrimSpace(c.Name) != "" && strings.TrimSpace(c.Phone) != ""
}

// InvalidContactRows returns the 1-based positions of entries missing a name
// or phone.
func InvalidContactRows(contacts []Contact) []int {
	var rows []int
	for i, c := range contacts {
		if !c.Valid() {
			rows = append(rows, i+1)
		}
	}
	return rows
}
