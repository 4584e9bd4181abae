// Package i18n localizes the strings the responder injects into replies:
// the post/comment nouns and the relative-time renderings behind the
// mod-action placeholders. Only the languages listed here are supported;
// lookup is by the configured language code, with a BCP 47 matcher as a
// lenient fallback so "en-US" or "pt-BR" still resolve.
package i18n

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

type unit int

const (
	unitMinute unit = iota
	unitHour
	unitDay
	unitWeek
	unitMonth
	unitYear
)

// unitWords holds the singular and plural noun per time unit, indexed by unit.
type unitWords [6][2]string

// Language carries everything needed to render localized reply fragments.
type Language struct {
	Code string
	Name string
	Tag  language.Tag

	// Nouns substituted for the moderation target kind.
	PostWord    string
	CommentWord string

	// agoFormat wraps a rendered timespan into a "…ago" phrase; the word
	// order differs per language so it is a format string, not a suffix.
	agoFormat  string
	dateLayout string
	units      unitWords
}

var Languages = []Language{
	{
		Code: "en", Name: "English (US)", Tag: language.AmericanEnglish,
		PostWord: "post", CommentWord: "comment",
		agoFormat: "%s ago", dateLayout: "01/02/2006",
		units: unitWords{{"minute", "minutes"}, {"hour", "hours"}, {"day", "days"}, {"week", "weeks"}, {"month", "months"}, {"year", "years"}},
	},
	{
		Code: "enGB", Name: "English (UK)", Tag: language.BritishEnglish,
		PostWord: "post", CommentWord: "comment",
		agoFormat: "%s ago", dateLayout: "02/01/2006",
		units: unitWords{{"minute", "minutes"}, {"hour", "hours"}, {"day", "days"}, {"week", "weeks"}, {"month", "months"}, {"year", "years"}},
	},
	{
		Code: "da", Name: "dansk", Tag: language.Danish,
		PostWord: "indlæg", CommentWord: "kommentar",
		agoFormat: "%s siden", dateLayout: "02.01.2006",
		units: unitWords{{"minut", "minutter"}, {"time", "timer"}, {"dag", "dage"}, {"uge", "uger"}, {"måned", "måneder"}, {"år", "år"}},
	},
	{
		Code: "de", Name: "Deutsch", Tag: language.German,
		PostWord: "Beitrag", CommentWord: "Kommentar",
		agoFormat: "vor %s", dateLayout: "02.01.2006",
		units: unitWords{{"Minute", "Minuten"}, {"Stunde", "Stunden"}, {"Tag", "Tagen"}, {"Woche", "Wochen"}, {"Monat", "Monaten"}, {"Jahr", "Jahren"}},
	},
	{
		Code: "es", Name: "español", Tag: language.Spanish,
		PostWord: "publicación", CommentWord: "comentario",
		agoFormat: "hace %s", dateLayout: "02/01/2006",
		units: unitWords{{"minuto", "minutos"}, {"hora", "horas"}, {"día", "días"}, {"semana", "semanas"}, {"mes", "meses"}, {"año", "años"}},
	},
	{
		Code: "fi", Name: "suomi", Tag: language.Finnish,
		PostWord: "viesti", CommentWord: "kommentti",
		agoFormat: "%s sitten", dateLayout: "02.01.2006",
		units: unitWords{{"minuutti", "minuuttia"}, {"tunti", "tuntia"}, {"päivä", "päivää"}, {"viikko", "viikkoa"}, {"kuukausi", "kuukautta"}, {"vuosi", "vuotta"}},
	},
	{
		Code: "fr", Name: "français", Tag: language.French,
		PostWord: "post", CommentWord: "commentaire",
		agoFormat: "il y a %s", dateLayout: "02/01/2006",
		units: unitWords{{"minute", "minutes"}, {"heure", "heures"}, {"jour", "jours"}, {"semaine", "semaines"}, {"mois", "mois"}, {"an", "ans"}},
	},
	{
		Code: "hr", Name: "hrvatski", Tag: language.Croatian,
		PostWord: "objava", CommentWord: "komentar",
		agoFormat: "prije %s", dateLayout: "02.01.2006.",
		units: unitWords{{"minute", "minuta"}, {"sat", "sati"}, {"dan", "dana"}, {"tjedan", "tjedana"}, {"mjesec", "mjeseci"}, {"godine", "godina"}},
	},
	{
		Code: "it", Name: "italiano", Tag: language.Italian,
		PostWord: "post", CommentWord: "inviato",
		agoFormat: "%s fa", dateLayout: "02/01/2006",
		units: unitWords{{"minuto", "minuti"}, {"ora", "ore"}, {"giorno", "giorni"}, {"settimana", "settimane"}, {"mese", "mesi"}, {"anno", "anni"}},
	},
	{
		Code: "nl", Name: "Nederlands", Tag: language.Dutch,
		PostWord: "post", CommentWord: "reactie",
		agoFormat: "%s geleden", dateLayout: "02-01-2006",
		units: unitWords{{"minuut", "minuten"}, {"uur", "uur"}, {"dag", "dagen"}, {"week", "weken"}, {"maand", "maanden"}, {"jaar", "jaar"}},
	},
	{
		Code: "nb", Name: "Bokmål", Tag: language.Norwegian,
		PostWord: "post", CommentWord: "kommentar",
		agoFormat: "%s siden", dateLayout: "02.01.2006",
		units: unitWords{{"minutt", "minutter"}, {"time", "timer"}, {"dag", "dager"}, {"uke", "uker"}, {"måned", "måneder"}, {"år", "år"}},
	},
	{
		Code: "pl", Name: "polski", Tag: language.Polish,
		PostWord: "post", CommentWord: "komentarz",
		agoFormat: "%s temu", dateLayout: "02.01.2006",
		units: unitWords{{"minuta", "minut"}, {"godzina", "godzin"}, {"dzień", "dni"}, {"tydzień", "tygodni"}, {"miesiąc", "miesięcy"}, {"rok", "lat"}},
	},
	{
		Code: "pt", Name: "português", Tag: language.Portuguese,
		PostWord: "post", CommentWord: "comentário",
		agoFormat: "há %s", dateLayout: "02/01/2006",
		units: unitWords{{"minuto", "minutos"}, {"hora", "horas"}, {"dia", "dias"}, {"semana", "semanas"}, {"mês", "meses"}, {"ano", "anos"}},
	},
	{
		Code: "ro", Name: "română", Tag: language.Romanian,
		PostWord: "post", CommentWord: "comentariu",
		agoFormat: "acum %s", dateLayout: "02.01.2006",
		units: unitWords{{"minut", "minute"}, {"oră", "ore"}, {"zi", "zile"}, {"săptămână", "săptămâni"}, {"lună", "luni"}, {"an", "ani"}},
	},
	{
		Code: "ru", Name: "русский", Tag: language.Russian,
		PostWord: "пост", CommentWord: "комментарий",
		agoFormat: "%s назад", dateLayout: "02.01.2006",
		units: unitWords{{"минуту", "минут"}, {"час", "часов"}, {"день", "дней"}, {"неделю", "недель"}, {"месяц", "месяцев"}, {"год", "лет"}},
	},
	{
		Code: "sv", Name: "Svenska", Tag: language.Swedish,
		PostWord: "inlägg", CommentWord: "kommentar",
		agoFormat: "för %s sedan", dateLayout: "2006-01-02",
		units: unitWords{{"minut", "minuter"}, {"timme", "timmar"}, {"dag", "dagar"}, {"vecka", "veckor"}, {"månad", "månader"}, {"år", "år"}},
	},
	{
		Code: "tr", Name: "Türkçe", Tag: language.Turkish,
		PostWord: "gönder", CommentWord: "yorum",
		agoFormat: "%s önce", dateLayout: "02.01.2006",
		units: unitWords{{"dakika", "dakika"}, {"saat", "saat"}, {"gün", "gün"}, {"hafta", "hafta"}, {"ay", "ay"}, {"yıl", "yıl"}},
	},
}

// Default is US English, the fallback when no locale is configured.
var Default = &Languages[0]

var matcher language.Matcher

func init() {
	tags := make([]language.Tag, len(Languages))
	for i := range Languages {
		tags[i] = Languages[i].Tag
	}
	matcher = language.NewMatcher(tags)
}

// FromCode resolves a configured language code to a supported language.
// Exact code matches (including the "enGB" spelling) win; otherwise the code
// is parsed as a BCP 47 tag and matched against the supported set. Unparseable
// codes are an error.
func FromCode(code string) (*Language, error) {
	if code == "" {
		return Default, nil
	}
	for i := range Languages {
		if Languages[i].Code == code {
			return &Languages[i], nil
		}
	}
	tag, err := language.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("language code %q not supported", code)
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return nil, fmt.Errorf("language code %q not supported", code)
	}
	return &Languages[index], nil
}

// overridable in tests
var timeNow = time.Now

// TimespanToNow renders the distance from t to now as a count of the largest
// whole unit, e.g. "3 days". Sub-minute distances clamp to one minute.
func (l *Language) TimespanToNow(t time.Time) string {
	return l.timespan(timeNow().Sub(t))
}

// RelativeTime renders t relative to now: recent instants (within a week)
// become an "…ago" phrase, older ones a localized calendar date.
func (l *Language) RelativeTime(t time.Time) string {
	elapsed := timeNow().Sub(t)
	if elapsed < 7*24*time.Hour {
		return fmt.Sprintf(l.agoFormat, l.timespan(elapsed))
	}
	return t.Format(l.dateLayout)
}

func (l *Language) timespan(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	type step struct {
		unit unit
		size time.Duration
	}
	steps := []step{
		{unitYear, 365 * 24 * time.Hour},
		{unitMonth, 30 * 24 * time.Hour},
		{unitWeek, 7 * 24 * time.Hour},
		{unitDay, 24 * time.Hour},
		{unitHour, time.Hour},
	}
	for _, s := range steps {
		if d >= s.size {
			return l.count(int(d/s.size), s.unit)
		}
	}

	minutes := int(d / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return l.count(minutes, unitMinute)
}

func (l *Language) count(n int, u unit) string {
	words := l.units[u]
	if n == 1 {
		return fmt.Sprintf("1 %s", words[0])
	}
	return fmt.Sprintf("%d %s", n, words[1])
}
