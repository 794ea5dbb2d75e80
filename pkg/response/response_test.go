package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swgoh/prereqbot/pkg/failure"
)

func TestBuild(t *testing.T) {
	ctx := Context{UserName: "Alice", CommandName: "reqs", Prefix: "!"}

	tests := []struct {
		name   string
		in     failure.Classification
		want   Response
		wantOK bool
	}{
		{
			name:   "permission denied",
			in:     failure.Classification{Category: failure.PermissionDenied, Hints: []string{"ignored"}},
			want:   Response{Title: "Access denied", Body: BodyAccessDenied, Severity: SeverityError},
			wantOK: true,
		},
		{
			name: "invalid input with hints",
			in: failure.Classification{Category: failure.InvalidArgument, Hints: []string{
				"ally code invalid", "missing value for target",
			}},
			want:   Response{Title: "Invalid input", Body: "ally code invalid\nmissing value for target", Severity: SeverityError},
			wantOK: true,
		},
		{
			name:   "invalid input without hints",
			in:     failure.Classification{Category: failure.InvalidArgument, Hints: []string{}},
			want:   Response{Title: "Invalid input", Body: Guidance("!"), Severity: SeverityError},
			wantOK: true,
		},
		{
			name:   "missing arguments",
			in:     failure.Classification{Category: failure.MissingArguments, Fields: []string{"character", "allycode"}},
			want:   Response{Title: "Missing arguments", Body: "I need a value for character\nI need a value for allycode", Severity: SeverityError},
			wantOK: true,
		},
		{
			name: "unclassified",
			in:   failure.Classification{Category: failure.Unclassified},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Build(tt.in, ctx)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGuidanceUsesPrefix(t *testing.T) {
	assert.Contains(t, Guidance("?"), "?reqs <character> <ally code>")
}

func TestSeverityColor(t *testing.T) {
	assert.Equal(t, 0xFF0000, SeverityError.Color())
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "info", SeverityInfo.String())
}
