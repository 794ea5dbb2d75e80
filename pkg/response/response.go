// Package response turns a classified command failure into the message the user sees.
package response

import (
	"fmt"
	"strings"

	"github.com/swgoh/prereqbot/pkg/failure"
)

// Severity selects how a response is rendered.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "info"
}

// Color is the embed color for the severity.
func (s Severity) Color() int {
	if s == SeverityError {
		return 0xFF0000
	}
	return 0x3498DB
}

// Response is a single user-facing message.
type Response struct {
	Title    string
	Body     string
	Severity Severity
}

// Context is what the builder knows about the failed invocation.
type Context struct {
	UserName    string
	CommandName string
	Prefix      string
}

const (
	TitleAccessDenied     = "Access denied"
	TitleInvalidInput     = "Invalid input"
	TitleMissingArguments = "Missing arguments"

	BodyAccessDenied = "You do not have the permissions required to execute this command."
)

// Build maps a classification to a response. ok is false for failures the
// user is not told about.
func Build(c failure.Classification, ctx Context) (r Response, ok bool) {
	switch c.Category {
	case failure.PermissionDenied:
		return Response{Title: TitleAccessDenied, Body: BodyAccessDenied, Severity: SeverityError}, true

	case failure.InvalidArgument:
		body := strings.Join(c.Hints, "\n")
		if len(c.Hints) == 0 {
			body = Guidance(ctx.Prefix)
		}
		return Response{Title: TitleInvalidInput, Body: body, Severity: SeverityError}, true

	case failure.MissingArguments:
		lines := make([]string, 0, len(c.Fields))
		for _, f := range c.Fields {
			lines = append(lines, "I need a value for "+f)
		}
		if len(lines) == 0 {
			lines = append(lines, Guidance(ctx.Prefix))
		}
		return Response{Title: TitleMissingArguments, Body: strings.Join(lines, "\n"), Severity: SeverityError}, true
	}
	return Response{}, false
}

// Guidance is the fallback text for input the bot could not make sense of.
func Guidance(prefix string) string {
	return fmt.Sprintf("You haven't told me anything. I need to know who I'm looking for and for whom.\nTry %sreqs <character> <ally code>", prefix)
}
