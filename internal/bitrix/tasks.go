package bitrix

import (
	"context"
	"net/url"
	"strconv"

	"digestbot/pkg/logx"
)

// maxTaskPages bounds pagination per user. The portal signals more pages via
// the "next" cursor; a misbehaving upstream could hand them out forever.
const maxTaskPages = 10

// TaskOptions controls the open-task query.
type TaskOptions struct {
	// ExcludeCompleted drops completed tasks (status 5) server-side.
	ExcludeCompleted bool
}

// taskPage is the result shape of tasks.task.list.
type taskPage struct {
	Tasks []Task `json:"tasks"`
}

// OpenTasks fetches every task assigned to the user via tasks.task.list,
// server-ordered by deadline ascending, following the "next" offset cursor
// until the portal stops returning one. All pages are fetched regardless of
// how many tasks the digest will display.
func (c *Client) OpenTasks(ctx context.Context, userID string, opt TaskOptions) ([]Task, error) {
	var all []Task
	start := 0
	for page := 0; ; page++ {
		if page == maxTaskPages {
			c.log.Warn("task pagination bound reached; task list may be incomplete",
				logx.String("user", userID),
				logx.Int("pages", maxTaskPages),
				logx.Int("fetched", len(all)))
			break
		}

		params := url.Values{}
		params.Set("filter[RESPONSIBLE_ID]", userID)
		if opt.ExcludeCompleted {
			params.Set("filter[!STATUS]", strconv.Itoa(TaskStatusCompleted))
		}
		params.Set("order[DEADLINE]", "asc")
		params.Set("start", strconv.Itoa(start))

		var pg taskPage
		resp, err := c.Call(ctx, MethodTaskList, params, &pg)
		if err != nil {
			return nil, err
		}
		all = append(all, pg.Tasks...)

		if resp.Next == nil {
			break
		}
		start = *resp.Next
	}
	return all, nil
}
