package failure

import (
	"errors"

	"github.com/swgoh/prereqbot/pkg/allycode"
)

// Category is the kind of answer a failure deserves.
type Category int

const (
	Unclassified Category = iota
	PermissionDenied
	InvalidArgument
	MissingArguments
)

func (c Category) String() string {
	switch c {
	case PermissionDenied:
		return "permission_denied"
	case InvalidArgument:
		return "invalid_argument"
	case MissingArguments:
		return "missing_arguments"
	default:
		return "unclassified"
	}
}

// AllyCodeKey is the payload key commands use for an ally code argument.
const AllyCodeKey = "allycode"

// HintAllyCodeInvalid is the hint added when the ally code argument is malformed.
const HintAllyCodeInvalid = "ally code invalid"

// Classification is the outcome of Classify.
// Hints is set for InvalidArgument, Fields for MissingArguments.
type Classification struct {
	Category Category
	Hints    []string
	Fields   []string
}

// Classify maps a failure identity and its payload to a Classification.
func Classify(kind error, data Data) Classification {
	switch {
	case errors.Is(kind, ErrChecksFailed):
		return Classification{Category: PermissionDenied}

	case errors.Is(kind, ErrInvalidArgument):
		hints := []string{}
		if code, ok := data.Get(AllyCodeKey); ok && code != "" && !allycode.Valid(code) {
			hints = append(hints, HintAllyCodeInvalid)
		}
		for _, f := range data {
			if f.Value == "" {
				hints = append(hints, "missing value for "+f.Key)
			}
		}
		return Classification{Category: InvalidArgument, Hints: hints}

	case errors.Is(kind, ErrMissingArguments):
		fields := []string{}
		for _, f := range data {
			if f.Value == "" {
				fields = append(fields, f.Key)
			}
		}
		return Classification{Category: MissingArguments, Fields: fields}
	}
	return Classification{Category: Unclassified}
}

// ClassifyError classifies err using the payload it carries.
func ClassifyError(err error) Classification {
	return Classify(err, DataOf(err))
}
