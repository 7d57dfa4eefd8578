package validate

import "sort"

// Field names of the account forms.
const (
	FieldEmail          = "email"
	FieldName           = "name"
	FieldPostcode       = "postcode"
	FieldCity           = "city"
	FieldPhone          = "phone"
	FieldOldPassword    = "oldPassword"
	FieldPassword       = "password"
	FieldPasswordRepeat = "passwordRepeat"
	FieldReadLegals     = "readLegals"
)

// Set maps field names to their rules.
type Set map[string][]Rule

// Fields returns the rules for every account form field. passwordRepeat, when non-nil, is the
// password the repeat field must equal; otherwise the repeat field has no rules entry.
func Fields(passwordRepeat *string) Set {
	s := Set{
		FieldEmail:       {Email, MaxLength(99)},
		FieldName:        {Words, MinLength(2)},
		FieldPostcode:    {Number, Length(5)},
		FieldCity:        {Words, MinLength(2)},
		FieldPhone:       {Phone, MinDigits(8), MaxDigits(15)},
		FieldOldPassword: {},
		FieldPassword: {
			MinLength(8),
			MaxLength(49),
			PasswordChars,
			ContainsDigit,
			ContainsUpper,
			ContainsLower,
		},
		FieldReadLegals: {Checked},
	}
	if passwordRepeat != nil {
		s[FieldPasswordRepeat] = []Rule{Equals(*passwordRepeat)}
	}
	return s
}

// Check runs every rule of field against value and returns the violated message keys.
// Unknown fields have no rules and always pass.
func (s Set) Check(field string, value any) []string {
	var out []string
	for _, rule := range s[field] {
		if err := rule(value); err != nil {
			out = append(out, err.Error())
		}
	}
	return out
}

// Validate checks every value whose field has rules. The result holds only failing fields and
// is empty when everything passes.
func (s Set) Validate(values map[string]any) map[string][]string {
	out := map[string][]string{}
	for field, value := range values {
		if keys := s.Check(field, value); len(keys) > 0 {
			out[field] = keys
		}
	}
	return out
}

// Only returns the subset of s for the given fields.
func (s Set) Only(fields ...string) Set {
	out := make(Set, len(fields))
	for _, f := range fields {
		if rules, ok := s[f]; ok {
			out[f] = rules
		}
	}
	return out
}

// Names returns the field names in s, sorted.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
