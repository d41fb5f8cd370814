package bitrix

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// User is one entry from user.get. The portal mixes booleans and "Y"/"N"
// strings across deployments, so the flag fields decode both.
type User struct {
	ID       string `json:"ID"`
	Name     string `json:"NAME"`
	LastName string `json:"LAST_NAME"`
	Active   yesNo  `json:"ACTIVE"`
	Bot      yesNo  `json:"IS_BOT"`
	UserType string `json:"USER_TYPE"`
}

// DisplayName joins first and last name, falling back to the ID.
func (u User) DisplayName() string {
	s := strings.TrimSpace(strings.TrimSpace(u.Name) + " " + strings.TrimSpace(u.LastName))
	if s == "" {
		return "#" + u.ID
	}
	return s
}

// External reports whether the user is an extranet (outside) collaborator.
func (u User) External() bool {
	return strings.EqualFold(strings.TrimSpace(u.UserType), "extranet")
}

// Event is one entry from calendar.event.get. Only the fields the digest
// renders are decoded.
type Event struct {
	Name     string `json:"NAME"`
	Location string `json:"LOCATION"`
}

// Task status codes as used by tasks.task.list.
const TaskStatusCompleted = 5

// Task is one entry from tasks.task.list. Numeric fields arrive as strings
// on most portals, hence flexInt.
type Task struct {
	ID            flexInt `json:"id"`
	Title         string  `json:"title"`
	Status        flexInt `json:"status"`
	Deadline      string  `json:"deadline"`
	CreatedDate   string  `json:"createdDate"`
	ResponsibleID flexInt `json:"responsibleId"`
}

// yesNo decodes the portal's assorted boolean encodings: true/false,
// "Y"/"N", "true"/"false", "1"/"0".
type yesNo bool

func (y *yesNo) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*y = false
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "Y", "YES", "TRUE", "1":
			*y = true
		default:
			*y = false
		}
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*y = yesNo(v)
	return nil
}

// flexInt decodes integers that may arrive quoted.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("bitrix: invalid numeric string %q: %w", s, err)
		}
		*f = flexInt(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

func (f flexInt) Int64() int64 { return int64(f) }

func (f flexInt) String() string { return strconv.FormatInt(int64(f), 10) }
