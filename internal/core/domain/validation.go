package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Field names a registration form input. The values double as form control
// names and JSON keys.
type Field string

const (
	FieldFullName      Field = "fullName"
	FieldEmail         Field = "email"
	FieldPhone         Field = "phone"
	FieldBirthDate     Field = "birthDate"
	FieldTermsAccepted Field = "termsAccepted"
)

// Fields lists the form inputs in display order.
var Fields = []Field{FieldFullName, FieldEmail, FieldPhone, FieldBirthDate, FieldTermsAccepted}

// ErrorKind identifies one field-level validation failure.
type ErrorKind int

const (
	NameRequired ErrorKind = iota + 1
	NameIncomplete
	NameWordTooShort
	EmailInvalid
	PhoneInvalid
	BirthDateRequired
	BirthDateInFuture
	BirthDateTooYoung
	TermsNotAccepted
)

type kindInfo struct {
	field   Field
	code    string
	message string
}

var kinds = map[ErrorKind]kindInfo{
	NameRequired:      {FieldFullName, "NAME_REQUIRED", "Full name is required."},
	NameIncomplete:    {FieldFullName, "NAME_INCOMPLETE", "Enter your full name (first and last)."},
	NameWordTooShort:  {FieldFullName, "NAME_WORD_TOO_SHORT", "Each part of the name must be at least 2 characters long."},
	EmailInvalid:      {FieldEmail, "EMAIL_INVALID", "Please enter a valid email address."},
	PhoneInvalid:      {FieldPhone, "PHONE_INVALID", "Please enter a valid Finnish phone number, e.g., +358 40 123 4567."},
	BirthDateRequired: {FieldBirthDate, "BIRTH_DATE_REQUIRED", "Birth date is required."},
	BirthDateInFuture: {FieldBirthDate, "BIRTH_DATE_IN_FUTURE", "Birth date cannot be in the future."},
	BirthDateTooYoung: {FieldBirthDate, "BIRTH_DATE_TOO_YOUNG", "You must be at least 13 years old."},
	TermsNotAccepted:  {FieldTermsAccepted, "TERMS_NOT_ACCEPTED", "You must accept the terms and conditions to submit."},
}

func (k ErrorKind) Field() Field    { return kinds[k].field }
func (k ErrorKind) Code() string    { return kinds[k].code }
func (k ErrorKind) Message() string { return kinds[k].message }
func (k ErrorKind) String() string  { return k.Code() }

// ValidationResult is the outcome of one validation pass. FieldErrors holds
// an entry only for fields that failed.
type ValidationResult struct {
	Valid       bool
	FieldErrors map[Field]ErrorKind
}

// Message returns the error text for field, or "" when it passed.
func (r ValidationResult) Message(field Field) string {
	kind, ok := r.FieldErrors[field]
	if !ok {
		return ""
	}
	return kind.Message()
}

// Messages flattens the result into field name -> message.
func (r ValidationResult) Messages() map[string]string {
	out := make(map[string]string, len(r.FieldErrors))
	for field, kind := range r.FieldErrors {
		out[string(field)] = kind.Message()
	}
	return out
}

// Codes flattens the result into field name -> machine-readable code.
func (r ValidationResult) Codes() map[string]string {
	out := make(map[string]string, len(r.FieldErrors))
	for field, kind := range r.FieldErrors {
		out[string(field)] = kind.Code()
	}
	return out
}

// Kinds returns the failures in field display order.
func (r ValidationResult) Kinds() []ErrorKind {
	out := make([]ErrorKind, 0, len(r.FieldErrors))
	for _, field := range Fields {
		if kind, ok := r.FieldErrors[field]; ok {
			out = append(out, kind)
		}
	}
	return out
}

const (
	minNameWords  = 2
	minWordLength = 2
	phonePrefix   = "+358"
	phoneLength   = 13
	minimumAge    = 13
)

// emailPattern excludes Unicode whitespace as well as ASCII \s, which is
// all Go's \s covers.
var emailPattern = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)

// Validate checks every field in one pass. Within a field only the first
// failing rule is reported. today supplies both the date and the location
// birth dates are interpreted in.
func (in RegistrationInput) Validate(today time.Time) ValidationResult {
	c := newChecker()

	name := strings.TrimSpace(in.FullName)
	words := strings.Fields(name)
	c.check(name != "", NameRequired)
	c.check(len(words) >= minNameWords, NameIncomplete)
	c.check(wordsAtLeast(words, minWordLength), NameWordTooShort)

	email := strings.TrimSpace(in.Email)
	c.check(email != "" && emailPattern.MatchString(email), EmailInvalid)

	phone := strings.TrimSpace(in.Phone)
	normalized := NormalizePhone(phone)
	c.check(phone != "" &&
		strings.HasPrefix(normalized, phonePrefix) &&
		utf8.RuneCountInString(normalized) == phoneLength, PhoneInvalid)

	c.checkBirthDate(strings.TrimSpace(in.BirthDate), Midnight(today))

	c.check(in.TermsAccepted, TermsNotAccepted)

	return c.result()
}

// NormalizePhone strips whitespace and hyphens.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, phone)
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AgeOn returns the number of whole years between birth and today.
func AgeOn(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age
}

func wordsAtLeast(words []string, n int) bool {
	for _, w := range words {
		if utf8.RuneCountInString(w) < n {
			return false
		}
	}
	return true
}

type checker struct {
	errs map[Field]ErrorKind
}

func newChecker() *checker {
	return &checker{errs: make(map[Field]ErrorKind)}
}

// check records kind unless ok holds or its field already failed.
func (c *checker) check(ok bool, kind ErrorKind) {
	if ok {
		return
	}
	if _, exists := c.errs[kind.Field()]; !exists {
		c.errs[kind.Field()] = kind
	}
}

// An unparseable date counts as missing.
func (c *checker) checkBirthDate(raw string, today time.Time) {
	if raw == "" {
		c.check(false, BirthDateRequired)
		return
	}
	birth, err := time.ParseInLocation(DateLayout, raw, today.Location())
	if err != nil {
		c.check(false, BirthDateRequired)
		return
	}
	if birth.After(today) {
		c.check(false, BirthDateInFuture)
		return
	}
	c.check(AgeOn(birth, today) >= minimumAge, BirthDateTooYoung)
}

func (c *checker) result() ValidationResult {
	return ValidationResult{Valid: len(c.errs) == 0, FieldErrors: c.errs}
}
