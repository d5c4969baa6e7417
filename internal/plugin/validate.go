package plugin

import (
	"github.com/go-playground/validator/v10"

	"github.com/feedrunner/feedrunner/internal/feed"
)

// validate is the shared struct validator for plugin configuration.
// Plugin config structs declare their rules with `validate` tags.
var validate = validator.New()

// structIssues runs struct validation and converts the failures into
// the engine's structured validation issues.
func structIssues(cfg any) []feed.ValidationIssue {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []feed.ValidationIssue{{Message: err.Error()}}
	}

	issues := make([]feed.ValidationIssue, 0, len(verrs))
	for _, ve := range verrs {
		issues = append(issues, feed.ValidationIssue{
			Message: "invalid value for " + ve.Field() + " (" + ve.Tag() + ")",
			Path:    ve.Namespace(),
			Value:   ve.Value(),
		})
	}
	return issues
}
