package platform

import (
	"context"
	"fmt"
	"net/url"
)

// AdminListGrievances retrieves every user's grievances.
// status may be empty or "all" to disable server-side filtering.
func (c *Client) AdminListGrievances(ctx context.Context, status string) ([]Grievance, error) {
	var query map[string]any
	if status != "" && status != "all" {
		query = map[string]any{"status": status}
	}

	data, err := c.Get(ctx, "/admin/grievances", query)
	if err != nil {
		return nil, err
	}
	return decodeGrievanceList(data)
}

// AdminStats retrieves platform-wide statistics
func (c *Client) AdminStats(ctx context.Context) (*Stats, error) {
	data, err := c.Get(ctx, "/admin/stats", nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Stats *Stats `json:"stats"`
	}
	if err := decodeInto(data, &envelope); err != nil {
		return nil, err
	}
	if envelope.Stats != nil {
		return envelope.Stats, nil
	}

	var stats Stats
	if err := decodeInto(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// AdminDeleteGrievance removes a grievance
func (c *Client) AdminDeleteGrievance(ctx context.Context, id ID) error {
	_, err := c.Delete(ctx, adminGrievancePath(id))
	return err
}

// AdminUpdateStatus overrides the duplicate status of a grievance
func (c *Client) AdminUpdateStatus(ctx context.Context, id ID, status DuplicateStatus) (*Grievance, error) {
	data, err := c.Put(ctx, adminGrievancePath(id), map[string]string{
		"duplicate_status": string(status),
	})
	if err != nil {
		return nil, err
	}

	sub, err := decodeSubmission(data)
	if err != nil {
		return nil, err
	}
	return &sub.Grievance, nil
}

func adminGrievancePath(id ID) string {
	return fmt.Sprintf("/admin/grievances/%s", url.PathEscape(id.String()))
}
