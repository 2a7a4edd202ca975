package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/felixgeelhaar/grievance/internal/platform"
	"github.com/felixgeelhaar/grievance/internal/ux"
)

// sessionView is printed by auth status and after login
type sessionView struct {
	LoggedIn        bool           `json:"logged_in" yaml:"logged_in"`
	User            *platform.User `json:"user,omitempty" yaml:"user,omitempty"`
	AdminAccess     bool           `json:"admin_access" yaml:"admin_access"`
	TokenExpiresAt  *time.Time     `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
	APIURL          string         `json:"api_url" yaml:"api_url"`
	CredentialsPath string         `json:"credentials_path,omitempty" yaml:"credentials_path,omitempty"`
	Unverified      bool           `json:"unverified,omitempty" yaml:"unverified,omitempty"`

	styles ux.Styles
}

func (v sessionView) RenderText(w io.Writer) error {
	if !v.LoggedIn || v.User == nil {
		fmt.Fprintln(w, "Not logged in.")
		if v.Unverified {
			fmt.Fprintln(w, v.styles.Warning.Render("A stored session exists but could not be verified; the service may be unreachable."))
		}
		fmt.Fprintln(w, "Use 'grievance auth login' to authenticate.")
		return nil
	}

	fmt.Fprintln(w, v.styles.Success.Render("Logged in"))
	fmt.Fprintf(w, "  Name:     %s\n", v.User.Name)
	if v.User.Email != "" {
		fmt.Fprintf(w, "  Email:    %s\n", v.User.Email)
	}
	fmt.Fprintf(w, "  User ID:  %s\n", v.User.ID)
	fmt.Fprintf(w, "  Role:     %s\n", v.User.Role)
	if v.AdminAccess {
		fmt.Fprintf(w, "  Admin:    %s\n", v.styles.Code.Render("grievance admin"))
	}
	if v.TokenExpiresAt != nil {
		fmt.Fprintf(w, "  Expires:  %s\n", v.TokenExpiresAt.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(w, "  API:      %s\n", v.APIURL)
	if v.CredentialsPath != "" {
		fmt.Fprintf(w, "  Stored:   %s\n", v.CredentialsPath)
	}
	return nil
}

// statsView is printed by dashboard and admin stats
type statsView struct {
	Scope string         `json:"scope" yaml:"scope"`
	User  *platform.User `json:"user,omitempty" yaml:"user,omitempty"`
	Stats platform.Stats `json:"stats" yaml:"stats"`

	styles  ux.Styles
	noColor bool
}

func (v statsView) RenderText(w io.Writer) error {
	title := "Dashboard"
	if v.Scope == "platform" {
		title = "Platform statistics"
	}
	fmt.Fprintln(w, v.styles.Title.Render(title))
	if v.User != nil {
		fmt.Fprintf(w, "Welcome, %s\n", v.User.Name)
	}
	fmt.Fprintln(w)

	t := ux.NewTable(w, "Status", "Count")
	t.AddRow("Total", fmt.Sprint(v.Stats.Total))
	t.AddRow(ux.BadgeFor(platform.StatusUnique).Render(v.noColor), fmt.Sprint(v.Stats.Unique))
	t.AddRow(ux.BadgeFor(platform.StatusNearDuplicate).Render(v.noColor), fmt.Sprint(v.Stats.NearDuplicate))
	t.AddRow(ux.BadgeFor(platform.StatusDuplicate).Render(v.noColor), fmt.Sprint(v.Stats.Duplicate))
	return t.Render()
}

// grievanceListView is printed by the list commands
type grievanceListView struct {
	Grievances []platform.Grievance `json:"grievances" yaml:"grievances"`

	noColor bool
}

func (v grievanceListView) RenderText(w io.Writer) error {
	return ux.GrievanceTable{Grievances: v.Grievances, NoColor: v.noColor}.RenderText(w)
}

// fileReceipt describes the local file that was uploaded
type fileReceipt struct {
	Name   string `json:"name" yaml:"name"`
	Size   int64  `json:"size" yaml:"size"`
	BLAKE3 string `json:"blake3" yaml:"blake3"`
}

// submissionView is printed after a grievance was submitted
type submissionView struct {
	Message   string             `json:"message,omitempty" yaml:"message,omitempty"`
	Grievance platform.Grievance `json:"grievance" yaml:"grievance"`
	File      *fileReceipt       `json:"file,omitempty" yaml:"file,omitempty"`

	styles  ux.Styles
	noColor bool
}

func (v submissionView) RenderText(w io.Writer) error {
	msg := v.Message
	if msg == "" {
		msg = "Grievance submitted"
	}
	fmt.Fprintln(w, v.styles.Success.Render(msg))
	fmt.Fprintf(w, "  ID:          %s\n", v.Grievance.ID)
	fmt.Fprintf(w, "  Status:      %s\n", ux.BadgeFor(v.Grievance.DuplicateStatus).Render(v.noColor))
	fmt.Fprintf(w, "  Similarity:  %s\n", ux.FormatSimilarity(v.Grievance.SimilarityScore))
	if v.Grievance.MatchedGrievanceID != nil && *v.Grievance.MatchedGrievanceID != "" {
		fmt.Fprintf(w, "  Matches:     #%s\n", *v.Grievance.MatchedGrievanceID)
	}
	if v.File != nil {
		fmt.Fprintf(w, "  File:        %s (%d bytes)\n", v.File.Name, v.File.Size)
		fmt.Fprintf(w, "  BLAKE3:      %s\n", v.styles.Muted.Render(v.File.BLAKE3))
	}
	if text := strings.TrimSpace(v.Grievance.OriginalText); text != "" {
		fmt.Fprintf(w, "  Text:        %s\n", ux.Truncate(strings.Join(strings.Fields(text), " "), 72))
	}
	return nil
}

// actionView reports a completed action with no richer result
type actionView struct {
	Action  string `json:"action" yaml:"action"`
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (v actionView) String() string {
	return v.Message
}
