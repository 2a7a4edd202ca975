package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"

	apperrors "github.com/felixgeelhaar/grievance/internal/errors"
	"github.com/felixgeelhaar/grievance/internal/guard"
	"github.com/felixgeelhaar/grievance/internal/platform"
	"github.com/felixgeelhaar/grievance/internal/progress"
)

func newDashboardCommand(cc *CommandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show your grievance statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cc)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			user, err := a.guard(ctx, guard.PathDashboard)
			if err != nil {
				return err
			}

			grievances, err := a.client.ListGrievances(ctx)
			if err != nil {
				return FromClientError(err)
			}

			return a.render(statsView{
				Scope:   "user",
				User:    &user,
				Stats:   platform.ComputeStats(grievances),
				styles:  a.styles,
				noColor: a.noColor,
			})
		},
	}
}

func newGrievancesCommand(cc *CommandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "grievances",
		Aliases: []string{"g"},
		Short:   "Submit and list your grievances",
	}

	cmd.AddCommand(
		newGrievancesListCommand(cc),
		newSubmitTextCommand(cc),
		newSubmitPDFCommand(cc),
	)
	return cmd
}

func newGrievancesListCommand(cc *CommandContext) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your grievances",
		Long: `List the grievances you submitted with their duplicate status.

Examples:
  grievance grievances list
  grievance grievances list --status NEAR_DUPLICATE
  grievance grievances list -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseStatusFilter(status)
			if err != nil {
				return err
			}

			a, err := newApp(cmd, cc)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, err := a.guard(ctx, guard.PathGrievances); err != nil {
				return err
			}

			grievances, err := a.client.ListGrievances(ctx)
			if err != nil {
				return FromClientError(err)
			}

			return a.render(grievanceListView{
				Grievances: platform.FilterByStatus(grievances, filter),
				noColor:    a.noColor,
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "only show this status: all, UNIQUE, NEAR_DUPLICATE or DUPLICATE")
	return cmd
}

func newSubmitTextCommand(cc *CommandContext) *cobra.Command {
	var text, file string

	cmd := &cobra.Command{
		Use:   "submit-text",
		Short: "Submit a grievance as text",
		Long: `Submit a grievance as text, given inline or read from a file.

Use --file - to read the text from stdin.

Examples:
  grievance grievances submit-text --text "No water since Monday"
  grievance grievances submit-text --file complaint.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := grievanceText(cmd.InOrStdin(), text, file)
			if err != nil {
				return err
			}

			a, err := newApp(cmd, cc)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, err := a.guard(ctx, guard.PathSubmitText); err != nil {
				return err
			}

			sub, err := a.client.SubmitText(ctx, body)
			if err != nil {
				return FromClientError(err)
			}

			return a.render(submissionView{
				Message:   sub.Message,
				Grievance: sub.Grievance,
				styles:    a.styles,
				noColor:   a.noColor,
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "grievance text")
	cmd.Flags().StringVar(&file, "file", "", "read the grievance text from a file, or - for stdin")
	cmd.MarkFlagsMutuallyExclusive("text", "file")
	return cmd
}

func newSubmitPDFCommand(cc *CommandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit-pdf <file>",
		Short: "Submit a grievance as a PDF document",
		Long: `Upload a PDF grievance. Upload progress is shown on terminals, and the
receipt includes the BLAKE3 fingerprint of the file that was sent.

Examples:
  grievance grievances submit-pdf complaint.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.EqualFold(filepath.Ext(path), ".pdf") {
				return apperrors.NewUsageError(
					fmt.Sprintf("%s is not a PDF file", path),
					"Only .pdf files can be uploaded",
					"Use 'grievance grievances submit-text' for plain text",
				)
			}

			f, err := os.Open(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return apperrors.NewFileNotFoundError(path)
				}
				return apperrors.NewFileReadError(path, err)
			}
			defer f.Close()

			a, err := newApp(cmd, cc)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, err := a.guard(ctx, guard.PathSubmitPDF); err != nil {
				return err
			}

			hasher := blake3.New()
			counter := &countingWriter{}
			upload := platform.Upload{
				Name:    filepath.Base(path),
				Content: io.TeeReader(f, io.MultiWriter(hasher, counter)),
			}

			bar := progress.NewBar(progress.Config{
				Writer: a.errOut,
				Label:  "Uploading " + upload.Name,
				Mode:   a.progressMode(),
			})
			sub, err := a.client.SubmitPDF(ctx, upload, bar.Update)
			bar.Finish(err == nil)
			if err != nil {
				return FromClientError(err)
			}

			return a.render(submissionView{
				Message:   sub.Message,
				Grievance: sub.Grievance,
				File: &fileReceipt{
					Name:   upload.Name,
					Size:   counter.n,
					BLAKE3: hex.EncodeToString(hasher.Sum(nil)),
				},
				styles:  a.styles,
				noColor: a.noColor,
			})
		},
	}
}

// grievanceText resolves --text or --file into a non-empty grievance body
func grievanceText(stdin io.Reader, text, file string) (string, error) {
	if file != "" {
		var data []byte
		var err error
		if file == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(file)
		}
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", apperrors.NewFileNotFoundError(file)
			}
			return "", apperrors.NewFileReadError(file, err)
		}
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.NewUsageError("grievance text is empty",
			"Pass --text \"...\" or --file <path>")
	}
	return text, nil
}

// parseStatusFilter accepts "all" or a duplicate status in any case
func parseStatusFilter(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return "all", nil
	}
	status, err := parseStatus(s)
	if err != nil {
		return "", err
	}
	return string(status), nil
}

// parseStatus accepts a known duplicate status in any case
func parseStatus(s string) (platform.DuplicateStatus, error) {
	upper := platform.DuplicateStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range platform.Statuses {
		if upper == known {
			return known, nil
		}
	}

	names := make([]string, len(platform.Statuses))
	for i, st := range platform.Statuses {
		names[i] = string(st)
	}
	return "", apperrors.NewUsageError(
		fmt.Sprintf("unknown status %q", s),
		"Use one of: "+strings.Join(names, ", "),
	)
}

// countingWriter counts the bytes that pass through it
type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
