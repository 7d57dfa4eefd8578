package validate

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

type entry struct {
	de, en string
}

// Parameterized entries take the number after the last dot as %d.
var messages = map[string]entry{
	"required":         {"Pflichtfeld", "This field is required"},
	"maxLength":        {"Höchstens %d Zeichen", "At most %d characters"},
	"minLength":        {"Mindestens %d Zeichen", "At least %d characters"},
	"length":           {"Genau %d Zeichen", "Exactly %d characters"},
	"maxDigit":         {"Höchstens %d Ziffern", "At most %d digits"},
	"minDigit":         {"Mindestens %d Ziffern", "At least %d digits"},
	"needMatch":        {"Die Eingaben stimmen nicht überein", "The values do not match"},
	"needCheck":        {"Bitte bestätigen", "Please confirm"},
	"needToBeValid":    {"Keine gültige E-Mail-Adresse", "Not a valid email address"},
	"needToBeNumber":   {"Nur Ziffern erlaubt", "Digits only"},
	"needToBeWords":    {"Nur Buchstaben und Leerzeichen erlaubt", "Letters and spaces only"},
	"needToBePhone":    {"Keine gültige Telefonnummer", "Not a valid phone number"},
	"needToBePassword": {"Unerlaubtes Zeichen im Passwort", "The password contains a forbidden character"},
	"containOneNumber": {"Mindestens eine Ziffer", "At least one digit"},
	"containOneUpper":  {"Mindestens ein Großbuchstabe", "At least one upper case letter"},
	"containOneLower":  {"Mindestens ein Kleinbuchstabe", "At least one lower case letter"},
}

var (
	supported = []language.Tag{language.German, language.English}
	matcher   = language.NewMatcher(supported)
	builder   = newCatalog()
)

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.German))
	for key, e := range messages {
		if err := b.SetString(language.German, key, e.de); err != nil {
			panic(err)
		}
		if err := b.SetString(language.English, key, e.en); err != nil {
			panic(err)
		}
	}
	return b
}

// Translator renders violation keys as text in one language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// NewTranslator picks the best supported language for the given preferences, such as an
// Accept-Language header value. German is the default.
func NewTranslator(prefs ...string) *Translator {
	tag, _ := language.MatchStrings(matcher, prefs...)
	base, _ := tag.Base()
	switch base.String() {
	case "en":
		tag = language.English
	default:
		tag = language.German
	}
	return &Translator{tag: tag, printer: message.NewPrinter(tag, message.Catalog(builder))}
}

// Language returns the selected language.
func (t *Translator) Language() language.Tag {
	return t.tag
}

// Translate returns the text for key. Unknown keys are returned unchanged.
func (t *Translator) Translate(key string) string {
	name := strings.TrimPrefix(key, MessagePrefix)
	if _, ok := messages[name]; ok {
		return t.printer.Sprintf(name)
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		n, err := strconv.Atoi(name[i+1:])
		if _, ok := messages[name[:i]]; ok && err == nil {
			return t.printer.Sprintf(name[:i], n)
		}
	}
	return key
}

// TranslateAll translates every key of a field violation map.
func (t *Translator) TranslateAll(fields map[string][]string) map[string][]string {
	out := make(map[string][]string, len(fields))
	for field, keys := range fields {
		texts := make([]string, len(keys))
		for i, k := range keys {
			texts[i] = t.Translate(k)
		}
		out[field] = texts
	}
	return out
}
