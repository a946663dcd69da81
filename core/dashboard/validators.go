package dashboard

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/nutridash/core"
	"github.com/trezcool/nutridash/core/calendar"
	"github.com/trezcool/nutridash/core/kpi"
)

var (
	isoDateTag  = "isodate"
	isoDateText = "{0} must be a YYYY-MM-DD date"

	schoolSelTag  = "schoolsel"
	schoolSelText = "select either the district or a list of schools"

	customRangeTag  = "customrange"
	customRangeText = "custom_end must not be before custom_start"
)

// InitValidators registers the dashboard validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(isoDateTag, isoDateValidation)
	registerFieldTranslation(validate, translator, isoDateTag, isoDateText)

	_ = validate.RegisterValidation(schoolSelTag, schoolSelValidation)
	core.RegisterCustomTranslation(validate, translator, schoolSelTag, schoolSelText)

	validate.RegisterStructValidation(selectionStructValidation, Selection{})
	core.RegisterCustomTranslation(validate, translator, customRangeTag, customRangeText)
}

func registerFieldTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func isoDateValidation(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := time.Parse(calendar.DateLayout, s)
	return err == nil
}

// schoolSelValidation rejects the district sentinel mixed with school IDs.
func schoolSelValidation(fl validator.FieldLevel) bool {
	schools, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	return !(len(schools) > 1 && kpi.Selection(schools).IsDistrict())
}

func selectionStructValidation(sl validator.StructLevel) {
	sel := sl.Current().Interface().(Selection)
	if sel.CustomStart == "" || sel.CustomEnd == "" {
		return
	}
	start, errS := time.Parse(calendar.DateLayout, sel.CustomStart)
	end, errE := time.Parse(calendar.DateLayout, sel.CustomEnd)
	if errS == nil && errE == nil && end.Before(start) {
		sl.ReportError(sel.CustomEnd, "custom_end", "CustomEnd", customRangeTag, "")
	}
}
