package ocr

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Fields holds the identity fields parsed from recognized document text.
// Absent fields stay nil; partial extraction is not an error.
type Fields struct {
	Name *string
	Age  *int
	DOB  *string
}

// Label tokens cover the supported scripts: English, Devanagari, Arabic
var (
	nameLabelRe = regexp.MustCompile(`(?i)^\s*(?:name|नाम|الاسم)\s*[:：]\s*(.+)$`)
	nameShapeRe = regexp.MustCompile(`^\s*([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)\s*$`)
	dobRe       = regexp.MustCompile(`\b(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{4}|\d{4}[/\-.]\d{1,2}[/\-.]\d{1,2})\b`)
	// \b is ASCII-only in RE2, so it only guards the Latin label
	ageLabelRe  = regexp.MustCompile(`(?i)(?:\bage|उम्र|العمر)\s*[:：]?\s*(\d{1,3})\b`)
	dateSplitRe = regexp.MustCompile(`[/\-.]`)
)

// ExtractFields parses name, date of birth and age from recognized text.
// If a DOB is found but no explicit age, the age is derived as of now.
func ExtractFields(text string, now time.Time) Fields {
	var fields Fields

	lines := strings.Split(text, "\n")

	for _, line := range lines {
		if fields.Name != nil {
			break
		}
		if m := nameLabelRe.FindStringSubmatch(line); m != nil {
			name := stripNonLetters(m[1])
			if name != "" {
				fields.Name = &name
			}
		}
	}
	if fields.Name == nil {
		for _, line := range lines {
			if m := nameShapeRe.FindStringSubmatch(line); m != nil {
				name := m[1]
				fields.Name = &name
				break
			}
		}
	}

	for _, line := range lines {
		if m := dobRe.FindStringSubmatch(line); m != nil {
			dob := m[1]
			fields.DOB = &dob
			break
		}
	}

	for _, line := range lines {
		if m := ageLabelRe.FindStringSubmatch(line); m != nil {
			if age, err := strconv.Atoi(m[1]); err == nil {
				fields.Age = &age
				break
			}
		}
	}

	// Derive age from DOB when no explicit age field matched. Unparsable
	// dates leave the age unset.
	if fields.Age == nil && fields.DOB != nil {
		if age, ok := deriveAge(*fields.DOB, now); ok {
			fields.Age = &age
		}
	}

	return fields
}

// stripNonLetters keeps letters and single spaces, dropping OCR noise
func stripNonLetters(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) && !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// deriveAge computes full years between the DOB and now. Day-first order is
// assumed for D/M/YYYY dates; YYYY/M/D is also accepted.
func deriveAge(dob string, now time.Time) (int, bool) {
	parts := dateSplitRe.Split(dob, -1)
	if len(parts) != 3 {
		return 0, false
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, false
		}
		nums[i] = n
	}

	var year, month, day int
	if len(parts[0]) == 4 {
		year, month, day = nums[0], nums[1], nums[2]
	} else {
		day, month, year = nums[0], nums[1], nums[2]
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1900 || year > now.Year() {
		return 0, false
	}

	age := now.Year() - year
	if int(now.Month()) < month || (int(now.Month()) == month && now.Day() < day) {
		age--
	}
	if age < 0 {
		return 0, false
	}
	return age, true
}
