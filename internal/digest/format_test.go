package digest

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"digestbot/internal/bitrix"
)

var testNow = time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC) // a Monday

func testUser() bitrix.User {
	return bitrix.User{ID: "7", Name: "Aidar", LastName: "S", Active: true}
}

func TestFormatSections(t *testing.T) {
	t.Parallel()
	events := []bitrix.Event{
		{Name: "Standup", Location: "Room 4"},
		{Name: "Planning", Location: "calendar_93"},
	}
	tasks := []bitrix.Task{{Title: "Ship it"}}

	msg := Format(testUser(), events, tasks, FormatOptions{Now: testNow, Locale: "en"})

	if !strings.Contains(msg, "Good morning, Aidar S!") {
		t.Errorf("greeting missing:\n%s", msg)
	}
	if !strings.Contains(msg, "Today is 31 August, Monday.") {
		t.Errorf("date line missing:\n%s", msg)
	}
	if !strings.Contains(msg, "• Standup (Room 4)") {
		t.Errorf("event with location missing:\n%s", msg)
	}
	// Reserved technical locations never reach the output.
	if strings.Contains(msg, "calendar_93") {
		t.Errorf("reserved location leaked:\n%s", msg)
	}
	if !strings.Contains(msg, "• Planning\n") {
		t.Errorf("suppressed-location event rendered wrong:\n%s", msg)
	}
	if !strings.Contains(msg, "Have a productive day!") {
		t.Errorf("closing missing:\n%s", msg)
	}
}

func TestFormatRussianByDefault(t *testing.T) {
	t.Parallel()
	msg := Format(testUser(), nil, nil, FormatOptions{Now: testNow})
	if !strings.Contains(msg, "Доброе утро, Aidar S!") {
		t.Errorf("greeting missing:\n%s", msg)
	}
	if !strings.Contains(msg, "Сегодня 31 августа, понедельник.") {
		t.Errorf("date line missing:\n%s", msg)
	}
	if !strings.Contains(msg, "Сегодня встреч нет.") || !strings.Contains(msg, "Открытых задач нет.") {
		t.Errorf("empty-section lines missing:\n%s", msg)
	}
}

func TestFormatTaskDisplayCap(t *testing.T) {
	t.Parallel()
	var tasks []bitrix.Task
	for i := 1; i <= 20; i++ {
		var task bitrix.Task
		task.Title = fmt.Sprintf("task %d", i)
		tasks = append(tasks, task)
	}

	msg := Format(testUser(), nil, tasks, FormatOptions{Now: testNow, Locale: "en"})

	if got := strings.Count(msg, "• ["); got != 15 {
		t.Errorf("rendered %d task bullets, want 15", got)
	}
	if !strings.Contains(msg, "…and 5 more") {
		t.Errorf("overflow line missing:\n%s", msg)
	}
	if strings.Contains(msg, "task 16") {
		t.Errorf("task beyond display cap rendered:\n%s", msg)
	}
}

func TestFormatMessageCap(t *testing.T) {
	t.Parallel()
	events := []bitrix.Event{{Name: strings.Repeat("я", 5000)}}

	msg := Format(testUser(), events, nil, FormatOptions{Now: testNow})

	if n := utf8.RuneCountInString(msg); n > 3500 {
		t.Fatalf("message is %d runes, cap is 3500", n)
	}
	if !strings.HasSuffix(msg, "…") {
		t.Fatalf("truncated message must end with ellipsis: ...%s", msg[len(msg)-12:])
	}
}

func TestFormatStripsCarriageReturns(t *testing.T) {
	t.Parallel()
	tasks := []bitrix.Task{{Title: "line one\r\nline two"}}
	msg := Format(testUser(), nil, tasks, FormatOptions{Now: testNow, Locale: "en"})
	if strings.Contains(msg, "\r") {
		t.Fatal("carriage return survived formatting")
	}
}

func TestFormatNoTimeOfDay(t *testing.T) {
	t.Parallel()
	msg := Format(testUser(), []bitrix.Event{{Name: "Standup"}}, nil, FormatOptions{Now: testNow, Locale: "en"})
	if strings.Contains(msg, "09:00") {
		t.Fatalf("time of day rendered:\n%s", msg)
	}
}
