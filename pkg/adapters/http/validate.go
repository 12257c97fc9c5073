package http

import (
	"reflect"
	"strings"

	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateFocusNode, domain.FocusNode{})
	return v
}

func validateFocusNode(sl validator.StructLevel) {
	node := sl.Current().Interface().(domain.FocusNode)
	if err := node.Validate(); err != nil {
		sl.ReportError(node, "focusNode", "FocusNode", "focusnode", "")
	}
}

type evaluateBody struct {
	ExampleID string                 `json:"exampleId,omitempty"`
	Request   *domain.ScoringRequest `json:"request,omitempty" validate:"required_without=ExampleID"`
}

type createSaveBody struct {
	Name          string               `json:"name" validate:"required"`
	Configuration domain.Configuration `json:"configuration"`
}

type updateSaveBody struct {
	Configuration domain.Configuration `json:"configuration"`
}

type seekBody struct {
	Index *int `json:"index" validate:"required,min=-1"`
}
