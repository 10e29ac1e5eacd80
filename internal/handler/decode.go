package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/inventory"
	"github.com/xenking/kart-pos/internal/domain/product"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed requests (bad JSON, bad path params).
var errBadRequest = errors.New("bad request")

func readBody(w http.ResponseWriter, r *http.Request) (*jx.Decoder, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(errBadRequest, "read body")
	}
	if len(body) == 0 {
		return nil, errors.Wrap(errBadRequest, "empty body")
	}
	return jx.DecodeBytes(body), nil
}

// decodeObject walks the top-level object of the request body.
func decodeObject(w http.ResponseWriter, r *http.Request, field func(d *jx.Decoder, key string) error) error {
	d, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return field(d, string(key))
	}); err != nil {
		var verr *inventory.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return errors.Wrapf(errBadRequest, "decode body: %v", err)
	}
	return nil
}

// rawScalar reads a number or string value verbatim. Null yields "".
func rawScalar(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	case jx.String:
		return d.Str()
	case jx.Null:
		return "", d.Null()
	default:
		return "", errors.Errorf("unexpected %s", d.Next())
	}
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(errBadRequest, "invalid id %q", raw)
	}
	return id, nil
}

func decodeProductID(w http.ResponseWriter, r *http.Request) (int64, error) {
	var id int64
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "productId" {
			return d.Skip()
		}
		v, err := d.Int64()
		id = v
		return err
	})
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.Wrap(errBadRequest, "productId is required")
	}
	return id, nil
}

func decodeQuantity(w http.ResponseWriter, r *http.Request) (int, error) {
	var (
		qty int
		set bool
	)
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		v, err := d.Int()
		qty, set = v, true
		return err
	})
	if err != nil {
		return 0, err
	}
	if !set {
		return 0, errors.Wrap(errBadRequest, "quantity is required")
	}
	return qty, nil
}

// decodeTendered returns the raw tendered amount for cart.ParseTender.
func decodeTendered(w http.ResponseWriter, r *http.Request) (string, error) {
	var raw string
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "tendered" {
			return d.Skip()
		}
		v, err := rawScalar(d)
		raw = v
		return err
	})
	return raw, err
}

// decodeProductInput reads a product body. Price and stock accept numbers or
// numeric strings; anything else is reported per field.
func decodeProductInput(w http.ResponseWriter, r *http.Request) (inventory.ProductInput, error) {
	var (
		in     inventory.ProductInput
		fields = make(map[string]string)
	)
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			in.Name, err = d.Str()
		case "category":
			var s string
			s, err = d.Str()
			in.Category = product.Category(strings.ToLower(strings.TrimSpace(s)))
		case "sku":
			in.SKU, err = d.Str()
		case "image":
			in.Image, err = d.Str()
		case "price":
			var raw string
			if raw, err = rawScalar(d); err != nil || raw == "" {
				return err
			}
			price, perr := decimal.NewFromString(strings.TrimSpace(raw))
			if perr != nil {
				fields["price"] = "must be a number"
				return nil
			}
			in.Price = &price
		case "stock":
			var raw string
			if raw, err = rawScalar(d); err != nil || raw == "" {
				return err
			}
			stock, perr := strconv.Atoi(strings.TrimSpace(raw))
			if perr != nil {
				fields["stock"] = "must be a whole number"
				return nil
			}
			in.Stock = &stock
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return in, err
	}
	if len(fields) > 0 {
		return in, &inventory.ValidationError{Fields: fields}
	}
	return in, nil
}
