package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmaster/taskboard/internal/application/services"
	"github.com/taskmaster/taskboard/internal/domain/entities"
)

// taskFilterFlags are the client-side filters shared by task listings
type taskFilterFlags struct {
	status    string
	assignee  int
	priority  string
	search    string
	dueBefore string
	dueAfter  string
}

func (f *taskFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.status, "status", "", "only tasks with this status (New, InProgress, Done)")
	cmd.Flags().IntVar(&f.assignee, "assignee", 0, "only tasks assigned to this user id")
	cmd.Flags().StringVar(&f.priority, "priority", "", "only tasks with this priority (Low, Medium, High)")
	cmd.Flags().StringVar(&f.search, "search", "", "only tasks whose description contains this text")
	cmd.Flags().StringVar(&f.dueBefore, "due-before", "", "only tasks due on or before this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.dueAfter, "due-after", "", "only tasks due on or after this date (YYYY-MM-DD)")
}

func (f *taskFilterFlags) criteria(cmd *cobra.Command) (services.TaskCriteria, error) {
	var c services.TaskCriteria

	if f.status != "" {
		status, ok := entities.ParseTaskStatus(f.status)
		if !ok {
			return c, fmt.Errorf("%w: unknown status %q", entities.ErrValidation, f.status)
		}
		c.Status = status
	}
	if f.priority != "" {
		priority, ok := entities.ParsePriority(f.priority)
		if !ok {
			return c, fmt.Errorf("%w: unknown priority %q", entities.ErrValidation, f.priority)
		}
		c.Priority = priority
	}
	if cmd.Flags().Changed("assignee") {
		id := f.assignee
		c.AssigneeID = &id
	}
	c.SearchText = f.search

	if f.dueBefore != "" {
		t, dateOnly, err := parseDate(f.dueBefore)
		if err != nil {
			return c, err
		}
		if dateOnly {
			t = endOfDay(t)
		}
		c.DueBefore = &t
	}
	if f.dueAfter != "" {
		t, _, err := parseDate(f.dueAfter)
		if err != nil {
			return c, err
		}
		c.DueAfter = &t
	}
	return c, nil
}

// endOfDay is the last instant of midnight's calendar day, which is not
// always 24 hours away across a DST change.
func endOfDay(midnight time.Time) time.Time {
	return midnight.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// parseDate accepts YYYY-MM-DD (local midnight) or RFC 3339
func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", entities.ErrValidation, s)
}

func optionalDate(cmd *cobra.Command, flag, value string) (*time.Time, error) {
	if !cmd.Flags().Changed(flag) {
		return nil, nil
	}
	t, _, err := parseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseID(s, what string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s id %q", entities.ErrValidation, what, s)
	}
	return id, nil
}

func optionalInt(cmd *cobra.Command, flag string, value int) *int {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}

func optionalFloat(cmd *cobra.Command, flag string, value float64) *float64 {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}
