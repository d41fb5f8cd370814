package bitrix

import (
	"context"
	"net/url"
	"strconv"
)

// ActiveUsers fetches the portal's active member list via user.get.
//
// The ACTIVE filter is applied server-side; bots and extranet collaborators
// are dropped client-side as well, since older portals ignore parts of the
// filter. When onlyUserID is > 0 the result is narrowed to that single user
// (numeric comparison — portal IDs arrive as strings).
func (c *Client) ActiveUsers(ctx context.Context, onlyUserID int64) ([]User, error) {
	params := url.Values{}
	params.Set("FILTER[ACTIVE]", "true")

	var users []User
	if _, err := c.Call(ctx, MethodUserGet, params, &users); err != nil {
		return nil, err
	}

	out := users[:0]
	for _, u := range users {
		if !bool(u.Active) || bool(u.Bot) || u.External() {
			continue
		}
		if onlyUserID > 0 {
			id, err := strconv.ParseInt(u.ID, 10, 64)
			if err != nil || id != onlyUserID {
				continue
			}
		}
		out = append(out, u)
	}
	return out, nil
}
