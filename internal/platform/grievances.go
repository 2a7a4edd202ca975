package platform

import (
	"context"
	"encoding/json"
)

// DuplicateStatus is the externally computed classification of a grievance.
// It is display data only; no logic in this client depends on its value.
type DuplicateStatus string

const (
	StatusUnique        DuplicateStatus = "UNIQUE"
	StatusNearDuplicate DuplicateStatus = "NEAR_DUPLICATE"
	StatusDuplicate     DuplicateStatus = "DUPLICATE"
)

// Statuses lists the known classifications in display order
var Statuses = []DuplicateStatus{StatusUnique, StatusNearDuplicate, StatusDuplicate}

// Grievance is a submitted grievance as returned by the service
type Grievance struct {
	ID                 ID              `json:"id" yaml:"id"`
	OriginalText       string          `json:"original_text" yaml:"original_text"`
	DuplicateStatus    DuplicateStatus `json:"duplicate_status" yaml:"duplicate_status"`
	SimilarityScore    float64         `json:"similarity_score" yaml:"similarity_score"`
	MatchedGrievanceID *ID             `json:"matched_grievance_id,omitempty" yaml:"matched_grievance_id,omitempty"`
	SubmissionType     string          `json:"submission_type,omitempty" yaml:"submission_type,omitempty"`
	CreatedAt          string          `json:"created_at" yaml:"created_at"`
}

// GrievanceList is the response of the list endpoints
type GrievanceList struct {
	Grievances []Grievance `json:"grievances" yaml:"grievances"`
}

// Submission is the response to a text or PDF submission
type Submission struct {
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	Grievance Grievance `json:"grievance" yaml:"grievance"`
}

// Stats counts grievances by duplicate status
type Stats struct {
	Total         int `json:"total" yaml:"total"`
	Unique        int `json:"unique" yaml:"unique"`
	NearDuplicate int `json:"near_duplicate" yaml:"near_duplicate"`
	Duplicate     int `json:"duplicate" yaml:"duplicate"`
}

// ComputeStats counts grievances by status
func ComputeStats(grievances []Grievance) Stats {
	stats := Stats{Total: len(grievances)}
	for _, g := range grievances {
		switch g.DuplicateStatus {
		case StatusUnique:
			stats.Unique++
		case StatusNearDuplicate:
			stats.NearDuplicate++
		case StatusDuplicate:
			stats.Duplicate++
		}
	}
	return stats
}

// FilterByStatus keeps grievances with the given status; "" or "all" keeps everything
func FilterByStatus(grievances []Grievance, status string) []Grievance {
	if status == "" || status == "all" {
		return grievances
	}
	filtered := make([]Grievance, 0, len(grievances))
	for _, g := range grievances {
		if string(g.DuplicateStatus) == status {
			filtered = append(filtered, g)
		}
	}
	return filtered
}

// ListGrievances retrieves the current user's grievances
func (c *Client) ListGrievances(ctx context.Context) ([]Grievance, error) {
	data, err := c.Get(ctx, "/grievances", nil)
	if err != nil {
		return nil, err
	}
	return decodeGrievanceList(data)
}

// SubmitText submits a text grievance
func (c *Client) SubmitText(ctx context.Context, text string) (*Submission, error) {
	data, err := c.Post(ctx, "/grievances", map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	return decodeSubmission(data)
}

// SubmitPDF uploads a PDF grievance
func (c *Client) SubmitPDF(ctx context.Context, file Upload, onProgress ProgressFunc) (*Submission, error) {
	data, err := c.UploadFile(ctx, "/grievances/pdf", file, onProgress)
	if err != nil {
		return nil, err
	}
	return decodeSubmission(data)
}

func decodeGrievanceList(data json.RawMessage) ([]Grievance, error) {
	var list GrievanceList
	if err := decodeInto(data, &list); err != nil {
		return nil, err
	}
	if list.Grievances == nil {
		return []Grievance{}, nil
	}
	return list.Grievances, nil
}

// decodeSubmission accepts {"grievance": {...}} or a bare grievance
func decodeSubmission(data json.RawMessage) (*Submission, error) {
	var envelope struct {
		Message   string     `json:"message"`
		Grievance *Grievance `json:"grievance"`
	}
	if err := decodeInto(data, &envelope); err != nil {
		return nil, err
	}
	if envelope.Grievance != nil {
		return &Submission{Message: envelope.Message, Grievance: *envelope.Grievance}, nil
	}

	var g Grievance
	if err := decodeInto(data, &g); err != nil {
		return nil, err
	}
	return &Submission{Message: envelope.Message, Grievance: g}, nil
}
