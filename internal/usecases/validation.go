package usecases

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"conexbot/internal/entities"
)

const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidEmail(email string) bool {
	return utf8.RuneCountInString(email) <= entities.MaxEmailLength && emailPattern.MatchString(email)
}

// checkLength rejects values longer than the column that stores them.
func checkLength(verr *entities.ValidationError, field, value string, max int) {
	if utf8.RuneCountInString(value) > max {
		verr.Add(field, "must be at most "+strconv.Itoa(max)+" characters")
	}
}

// checkProfileLengths covers the optional profile columns. Nil means the
// field is not being changed.
func checkProfileLengths(verr *entities.ValidationError, company, phone, cpf *string) {
	if company != nil {
		checkLength(verr, "company", *company, entities.MaxCompanyLength)
	}
	if phone != nil {
		checkLength(verr, "phone", *phone, entities.MaxPhoneLength)
	}
	if cpf != nil {
		checkLength(verr, "cpf", *cpf, entities.MaxCPFLength)
	}
}

// ParsePositiveInt accepts a JSON number or numeric string holding a whole
// number greater than zero.
func ParsePositiveInt(v any) (int, bool) {
	var n int
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) || x > math.MaxInt32 {
			return 0, false
		}
		n = int(x)
	case int:
		if x > math.MaxInt32 {
			return 0, false
		}
		n = x
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil || parsed > math.MaxInt32 {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	return n, n > 0
}
