package inventory

import (
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/product"
)

// ProductInput carries the editable fields of a product. Price and Stock are
// pointers so a missing value is distinguishable from zero.
type ProductInput struct {
	Name     string           `json:"name" validate:"required,max=200"`
	Price    *decimal.Decimal `json:"price" validate:"required,gte=0"`
	Category product.Category `json:"category" validate:"required,category"`
	Stock    *int             `json:"stock" validate:"required,gte=0"`
	SKU      string           `json:"sku" validate:"required,max=64"`
	Image    string           `json:"image" validate:"max=2048"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(v reflect.Value) any {
		d, ok := v.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		return d.InexactFloat64()
	}, decimal.Decimal{})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return product.Category(fl.Field().String()).Valid()
	})
	return v
}

// normalize trims text fields and fills the default image.
func (in ProductInput) normalize() ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	in.Image = strings.TrimSpace(in.Image)
	if in.Image == "" {
		in.Image = product.DefaultImage
	}
	return in
}

// Validate checks in against the product rules and returns a
// *ValidationError describing every failing field.
func (in ProductInput) Validate() error {
	fields := make(map[string]string)

	// The validator converts decimals to float64, which rescales; out of
	// range prices are settled here and hidden from it.
	if in.Price != nil {
		if msg := priceRangeMsg(*in.Price); msg != "" {
			fields["price"] = msg
			zero := decimal.Zero
			in.Price = &zero
		}
	}

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			if _, ok := fields[fe.Field()]; !ok {
				fields[fe.Field()] = msgForTag(fe)
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Build normalizes and validates in and returns the product it describes
// under id.
func (in ProductInput) Build(id int64) (product.Product, error) {
	in = in.normalize()
	if err := in.Validate(); err != nil {
		return product.Product{}, err
	}
	return in.product(id), nil
}

func (in ProductInput) product(id int64) product.Product {
	return product.Product{
		ID:       id,
		Name:     in.Name,
		Price:    *in.Price,
		Category: in.Category,
		Stock:    *in.Stock,
		SKU:      in.SKU,
		Image:    in.Image,
	}
}

func priceRangeMsg(d decimal.Decimal) string {
	switch err := product.CheckAmount(d); {
	case err == nil:
		return ""
	case errors.Is(err, product.ErrSubCent):
		return "must have at most 2 decimal places"
	default:
		return "must be at most " + product.MaxAmount.StringFixed(2)
	}
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "category":
		return "must be one of: clothing, accessories, home, stationery, health"
	default:
		return "failed on '" + fe.Tag() + "' validation"
	}
}
