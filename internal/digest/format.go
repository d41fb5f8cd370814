package digest

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"digestbot/internal/bitrix"
)

const (
	// maxDisplayTasks caps the tasks section; the remainder collapses into
	// an "and N more" line. Fetching is unaffected.
	maxDisplayTasks = 15
	// maxMessageRunes is the hard display cap for the whole digest.
	maxMessageRunes = 3500
)

// reservedLocation matches the technical placeholders the portal stores for
// meeting-room bookings (e.g. "calendar_93"). These are internal references,
// not human-readable locations, and are suppressed from display.
var reservedLocation = regexp.MustCompile(`^calendar_\d+$`)

// FormatOptions selects wording and the "today" the digest claims.
type FormatOptions struct {
	// Now is the render instant, already in the digest timezone.
	Now time.Time
	// Locale is "ru" or "en". Anything else falls back to ru.
	Locale string
}

type wording struct {
	greeting    string // Sprintf with display name
	noEvents    string
	eventsTitle string
	noTasks     string
	tasksTitle  string
	moreTasks   string // Sprintf with remaining count
	closing     string
	months      [12]string
	weekdays    [7]string
	dateLine    string // Sprintf with day, month, weekday
}

var wordingRu = wording{
	greeting:    "Доброе утро, %s! 👋",
	noEvents:    "Сегодня встреч нет.",
	eventsTitle: "📅 Встречи на сегодня:",
	noTasks:     "Открытых задач нет.",
	tasksTitle:  "✅ Открытые задачи:",
	moreTasks:   "…и ещё %d",
	closing:     "Продуктивного дня! 🚀",
	months: [12]string{
		"января", "февраля", "марта", "апреля", "мая", "июня",
		"июля", "августа", "сентября", "октября", "ноября", "декабря",
	},
	weekdays: [7]string{
		"воскресенье", "понедельник", "вторник", "среда", "четверг", "пятница", "суббота",
	},
	dateLine: "Сегодня %d %s, %s.",
}

var wordingEn = wording{
	greeting:    "Good morning, %s! 👋",
	noEvents:    "No events today.",
	eventsTitle: "📅 Today's events:",
	noTasks:     "No open tasks.",
	tasksTitle:  "✅ Open tasks:",
	moreTasks:   "…and %d more",
	closing:     "Have a productive day! 🚀",
	months: [12]string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	},
	weekdays: [7]string{
		"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
	},
	dateLine: "Today is %d %s, %s.",
}

// Format renders the per-user digest. Pure: no I/O, no clock reads — the
// instant comes in through opt.Now.
func Format(user bitrix.User, events []bitrix.Event, tasks []bitrix.Task, opt FormatOptions) string {
	w := wordingRu
	if opt.Locale == "en" {
		w = wordingEn
	}

	var b strings.Builder
	fmt.Fprintf(&b, w.greeting, user.DisplayName())
	b.WriteString("\n")
	fmt.Fprintf(&b, w.dateLine, opt.Now.Day(), w.months[opt.Now.Month()-1], w.weekdays[opt.Now.Weekday()])
	b.WriteString("\n\n")

	if len(events) == 0 {
		b.WriteString(w.noEvents)
		b.WriteString("\n")
	} else {
		b.WriteString(w.eventsTitle)
		b.WriteString("\n")
		for _, ev := range events {
			b.WriteString("• ")
			b.WriteString(strings.TrimSpace(ev.Name))
			if loc := strings.TrimSpace(ev.Location); loc != "" && !reservedLocation.MatchString(loc) {
				fmt.Fprintf(&b, " (%s)", loc)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	if len(tasks) == 0 {
		b.WriteString(w.noTasks)
		b.WriteString("\n")
	} else {
		b.WriteString(w.tasksTitle)
		b.WriteString("\n")
		shown := tasks
		if len(shown) > maxDisplayTasks {
			shown = shown[:maxDisplayTasks]
		}
		for _, t := range shown {
			fmt.Fprintf(&b, "• [#%s] %s\n", t.ID, strings.TrimSpace(t.Title))
		}
		if rest := len(tasks) - len(shown); rest > 0 {
			fmt.Fprintf(&b, w.moreTasks, rest)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(w.closing)

	msg := strings.ReplaceAll(b.String(), "\r", "")
	if utf8.RuneCountInString(msg) > maxMessageRunes {
		// Leave room for the ellipsis so the total stays at the cap.
		msg = truncRunes(msg, maxMessageRunes-1)
	}
	return msg
}

// truncRunes returns s truncated to at most n runes.
// It appends an ellipsis "…" when truncated.
func truncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	// Single-pass implementation:
	//  - remember the byte index after the n-th rune
	//  - if there is an (n+1)-th rune, truncate + ellipsis
	count := 0
	cut := 0
	for i, r := range s {
		count++
		if count == n {
			cut = i + utf8.RuneLen(r)
			continue
		}
		if count > n {
			if cut <= 0 {
				cut = i
			}
			return s[:cut] + "…"
		}
	}
	return s
}
