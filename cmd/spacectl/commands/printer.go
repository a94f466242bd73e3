package commands

import (
	"errors"
	"fmt"
	"io"

	"spacebook/pkg/client"
	apperrors "spacebook/pkg/errors"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	faint  = color.New(color.Faint)
)

type printer struct {
	out io.Writer
	err io.Writer
}

func (p printer) success(format string, a ...any) {
	green.Fprintf(p.out, "✓ "+format+"\n", a...)
}

func (p printer) info(format string, a ...any) {
	fmt.Fprintf(p.out, format+"\n", a...)
}

func (p printer) muted(format string, a ...any) {
	faint.Fprintf(p.out, format+"\n", a...)
}

// failure prints err to stderr, adding the conflicting range for booking conflicts.
func (p printer) failure(err error) {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		red.Fprintf(p.err, "Error: %v\n", err)
		return
	}

	red.Fprintf(p.err, "%s\n", apiErr.Message)
	switch apiErr.Code {
	case apperrors.CodeConflict:
		start, _ := apiErr.Details["conflicting_start_time"].(string)
		end, _ := apiErr.Details["conflicting_end_time"].(string)
		if start != "" && end != "" {
			yellow.Fprintf(p.err, "Already booked: %s - %s\n", start, end)
		}
		if upcoming, ok := apiErr.Details["upcoming_reservations"].(float64); ok {
			yellow.Fprintf(p.err, "Upcoming reservations: %d\n", int(upcoming))
		}
	case apperrors.CodeBusy:
		yellow.Fprintf(p.err, "Another booking for this space is in progress, try again.\n")
	}
}
