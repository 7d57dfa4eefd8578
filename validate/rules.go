package validate

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MessagePrefix starts every violation message key.
const MessagePrefix = "validationErrorMessages."

// Violation is a message key such as "validationErrorMessages.minLength.8".
type Violation string

func (v Violation) Error() string { return string(v) }

// Key returns the key without [MessagePrefix].
func (v Violation) Key() string { return strings.TrimPrefix(string(v), MessagePrefix) }

func violation(key string) Violation { return Violation(MessagePrefix + key) }

func violationN(key string, n int) Violation {
	return Violation(MessagePrefix + key + "." + strconv.Itoa(n))
}

// Rule checks one aspect of a form value and returns nil or a [Violation].
type Rule func(value any) error

var (
	numberPattern   = regexp.MustCompile(`^[0-9]*$`)
	wordsPattern    = regexp.MustCompile(`^[a-zA-ZÄÖÜäöüß ]*$`)
	phonePattern    = regexp.MustCompile(`^[0-9 +\-()/.x]*$`)
	passwordPattern = regexp.MustCompile(`^[a-zA-ZÄÖÜäöüß0-9#?!@$%^&.*\-+]*$`)
	digitPattern    = regexp.MustCompile(`[0-9]+`)
	upperPattern    = regexp.MustCompile(`[A-ZÄÖÜ]+`)
	lowerPattern    = regexp.MustCompile(`[a-zäöü]+`)
	nonDigitPattern = regexp.MustCompile(`[^0-9]`)

	emailPattern = regexp.MustCompile("^[-!#$%&'*+/0-9=?A-Z^_a-z`{|}~](\\.?[-!#$%&'*+/0-9=?A-Z^_a-z`{|}~])*@[a-zA-Z0-9](-*\\.?[a-zA-Z0-9])*\\.[a-zA-Z](-?[a-zA-Z0-9])+$")
)

// Required accepts non-empty strings and any bool.
func Required(v any) error {
	switch x := v.(type) {
	case string:
		if x != "" {
			return nil
		}
	case bool:
		return nil
	}
	return violation("required")
}

// MaxLength accepts strings of at most n characters.
func MaxLength(n int) Rule {
	return func(v any) error {
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) <= n {
			return nil
		}
		return violationN("maxLength", n)
	}
}

// MinLength accepts strings of at least n characters.
func MinLength(n int) Rule {
	return func(v any) error {
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) >= n {
			return nil
		}
		return violationN("minLength", n)
	}
}

// Length accepts strings of exactly n characters.
func Length(n int) Rule {
	return func(v any) error {
		if MinLength(n)(v) == nil && MaxLength(n)(v) == nil {
			return nil
		}
		return violationN("length", n)
	}
}

func digits(s string) int {
	return len(nonDigitPattern.ReplaceAllString(s, ""))
}

// MaxDigits accepts strings containing at most n digits.
func MaxDigits(n int) Rule {
	return func(v any) error {
		if s, ok := v.(string); ok && digits(s) <= n {
			return nil
		}
		return violationN("maxDigit", n)
	}
}

// MinDigits accepts strings containing at least n digits.
func MinDigits(n int) Rule {
	return func(v any) error {
		if s, ok := v.(string); ok && digits(s) >= n {
			return nil
		}
		return violationN("minDigit", n)
	}
}

// Equals accepts values deeply equal to want.
func Equals(want any) Rule {
	return func(v any) error {
		if reflect.DeepEqual(v, want) {
			return nil
		}
		return violation("needMatch")
	}
}

// Checked accepts the boolean true.
func Checked(v any) error {
	if b, ok := v.(bool); ok && b {
		return nil
	}
	return violation("needCheck")
}

// Email accepts syntactically valid addresses.
func Email(v any) error {
	if s, ok := v.(string); ok && validEmail(s) {
		return nil
	}
	return violation("needToBeValid")
}

func validEmail(s string) bool {
	if s == "" || len(s) > 254 {
		return false
	}
	local, domain, ok := strings.Cut(s, "@")
	if !ok || len(local) > 64 {
		return false
	}
	for _, part := range strings.Split(domain, ".") {
		if len(part) > 63 {
			return false
		}
	}
	return emailPattern.MatchString(s)
}

func matches(re *regexp.Regexp, key string) Rule {
	return func(v any) error {
		if s, ok := v.(string); ok && re.MatchString(s) {
			return nil
		}
		return violation(key)
	}
}

var (
	// Number accepts strings of ASCII digits only.
	Number = matches(numberPattern, "needToBeNumber")
	// Words accepts letters (including German umlauts) and spaces.
	Words = matches(wordsPattern, "needToBeWords")
	// Phone accepts digits, spaces and the characters +-()/.x.
	Phone = matches(phonePattern, "needToBePhone")
	// PasswordChars restricts passwords to letters, digits and #?!@$%^&.*-+.
	PasswordChars = matches(passwordPattern, "needToBePassword")
	// ContainsDigit requires at least one digit.
	ContainsDigit = matches(digitPattern, "containOneNumber")
	// ContainsUpper requires at least one upper case letter.
	ContainsUpper = matches(upperPattern, "containOneUpper")
	// ContainsLower requires at least one lower case letter.
	ContainsLower = matches(lowerPattern, "containOneLower")
)
