package billing

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmynk/billbook/internal/apperror"
	"github.com/mmynk/billbook/internal/calculator"
	"github.com/mmynk/billbook/internal/models"
)

// ItemInput holds the item form fields as typed by the user.
// Which fields are read depends on the mode: Area uses Width, Height, Depth,
// Unit, Rate and Quantity; Manual uses Quantity, Unit and Rate.
type ItemInput struct {
	ItemName string `json:"itemName"`
	Notes    string `json:"notes"`
	Width    string `json:"width"`
	Height   string `json:"height"`
	Depth    string `json:"depth"`
	Unit     string `json:"unit"`
	Rate     string `json:"rate"`
	Quantity string `json:"quantity"`
}

// DefaultAreaUnit is used when an Area item is entered without a unit.
const DefaultAreaUnit = "ft"

type areaFields struct {
	ItemName string  `json:"itemName" validate:"required"`
	Width    float64 `json:"width" validate:"gt=0"`
	Height   float64 `json:"height" validate:"gt=0"`
	Rate     float64 `json:"rate" validate:"gt=0"`
	Quantity int     `json:"quantity" validate:"gt=0"`
}

type manualFields struct {
	ItemName string  `json:"itemName" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
	Rate     float64 `json:"rate" validate:"gt=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors collects field -> failed rule, in the shape returned to the UI.
type fieldErrors map[string]string

func (fe fieldErrors) add(field, rule string) {
	if _, ok := fe[field]; !ok {
		fe[field] = rule
	}
}

func (fe fieldErrors) addValidation(err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		if err != nil {
			fe.add("input", err.Error())
		}
		return
	}
	for _, ve := range verrs {
		fe.add(ve.Field(), ve.Tag())
	}
}

func (fe fieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return apperror.NewFieldValidation(fe)
}

// parseNumber parses a trimmed decimal. Blank, non-numeric, NaN and infinite
// inputs are rejected.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (fe fieldErrors) number(field, s string) float64 {
	v, ok := parseNumber(s)
	if !ok {
		fe.add(field, "number")
	}
	return v
}

// buildItem parses and validates the input for the mode and returns an item
// with derived fields filled in. The id is left to the caller.
func buildItem(mode models.Mode, in ItemInput) (models.LineItem, error) {
	switch mode {
	case models.ModeArea:
		return buildAreaItem(in)
	case models.ModeManual:
		return buildManualItem(in)
	}
	return models.LineItem{}, apperror.NewValidation("unknown mode " + string(mode))
}

func buildAreaItem(in ItemInput) (models.LineItem, error) {
	fe := fieldErrors{}
	f := areaFields{
		ItemName: strings.TrimSpace(in.ItemName),
		Width:    fe.number("width", in.Width),
		Height:   fe.number("height", in.Height),
		Rate:     fe.number("rate", in.Rate),
	}

	qty := strings.TrimSpace(in.Quantity)
	if n, err := strconv.Atoi(qty); err == nil {
		f.Quantity = n
	} else if _, ok := parseNumber(qty); ok {
		fe.add("quantity", "integer")
	} else {
		fe.add("quantity", "number")
	}

	var depth *float64
	if strings.TrimSpace(in.Depth) != "" {
		d := fe.number("depth", in.Depth)
		depth = &d
	}

	fe.addValidation(validate.Struct(f))
	if err := fe.err(); err != nil {
		return models.LineItem{}, err
	}

	unit := strings.ToLower(strings.TrimSpace(in.Unit))
	if unit == "" {
		unit = DefaultAreaUnit
	}
	area, amount := calculator.AreaAmount(f.Width, f.Height, unit, f.Rate, f.Quantity)
	if !models.ValidAmount(area) || !models.ValidAmount(amount) {
		return models.LineItem{}, apperror.NewFieldValidation(map[string]string{"amount": "range"})
	}

	return models.LineItem{
		Kind:     models.ModeArea,
		ItemName: f.ItemName,
		Notes:    strings.TrimSpace(in.Notes),
		Amount:   amount,
		Area: &models.AreaDetails{
			Width:    f.Width,
			Height:   f.Height,
			Depth:    depth,
			Unit:     unit,
			Rate:     f.Rate,
			Quantity: f.Quantity,
			AreaSqFt: area,
		},
	}, nil
}

func buildManualItem(in ItemInput) (models.LineItem, error) {
	fe := fieldErrors{}
	f := manualFields{
		ItemName: strings.TrimSpace(in.ItemName),
		Quantity: fe.number("quantity", in.Quantity),
		Rate:     fe.number("rate", in.Rate),
	}

	fe.addValidation(validate.Struct(f))
	if err := fe.err(); err != nil {
		return models.LineItem{}, err
	}

	amount := calculator.ManualAmount(f.Quantity, f.Rate)
	if !models.ValidAmount(amount) {
		return models.LineItem{}, apperror.NewFieldValidation(map[string]string{"amount": "range"})
	}

	return models.LineItem{
		Kind:     models.ModeManual,
		ItemName: f.ItemName,
		Notes:    strings.TrimSpace(in.Notes),
		Amount:   amount,
		Manual: &models.ManualDetails{
			Quantity: f.Quantity,
			Unit:     strings.TrimSpace(in.Unit),
			Rate:     f.Rate,
		},
	}, nil
}
