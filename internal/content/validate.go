package content

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

var slugRules = []validation.Rule{
	validation.Required,
	validation.Match(slugPattern).Error("must be lowercase letters and digits separated by single hyphens"),
}

// ValidateSlug reports whether s is a well-formed slug. The returned error
// matches apperr.ErrValidation.
func ValidateSlug(s string) error {
	return apperr.Validation(validation.Errors{
		"slug": validation.Validate(s, slugRules...),
	}.Filter())
}

// validUTF8 rejects strings that cannot be stored in the metadata block.
var validUTF8 = validation.By(func(v any) error {
	if s, _ := v.(string); !utf8.ValidString(s) {
		return errors.New("must be valid UTF-8")
	}
	return nil
})

func validateInput(slug string, in models.ArticleInput) error {
	return apperr.Validation(validation.Errors{
		"slug":    validation.Validate(slug, slugRules...),
		"title":   validation.Validate(strings.TrimSpace(in.Title), validation.Required, validUTF8),
		"excerpt": validation.Validate(in.Excerpt, validUTF8),
		"image":   validation.Validate(in.Image, validUTF8),
		"content": validation.Validate(strings.TrimSpace(in.Content), validation.Required),
		"date":    validation.Validate(in.Date, validation.Date(models.DateLayout)),
	}.Filter())
}
