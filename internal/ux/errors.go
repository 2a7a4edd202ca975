package ux

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/grievance/internal/errors"
)

// RenderError writes err as a banner. Coded errors get their code, cause,
// suggestions and documentation link on separate lines.
func RenderError(w io.Writer, err error, styles Styles) {
	if err == nil {
		return
	}

	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		fmt.Fprintf(w, "%s %s\n", styles.Error.Render("Error:"), err.Error())
		return
	}

	var b strings.Builder
	b.WriteString(styles.Error.Render(fmt.Sprintf("Error [%s]:", appErr.Code)))
	b.WriteString(" ")
	b.WriteString(appErr.Message)
	b.WriteString("\n")

	if appErr.Cause != nil && appErr.Cause.Error() != appErr.Message {
		b.WriteString(styles.Muted.Render("  caused by: " + appErr.Cause.Error()))
		b.WriteString("\n")
	}

	if len(appErr.Suggestions) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.Label.Render("Suggestions:"))
		b.WriteString("\n")
		for _, s := range appErr.Suggestions {
			b.WriteString("  • ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}

	if appErr.DocsURL != "" {
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render("Documentation: " + appErr.DocsURL))
		b.WriteString("\n")
	}

	io.WriteString(w, b.String())
}
