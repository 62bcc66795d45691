package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/couchcryptid/crime-watch/internal/domain"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks request decoding and validation failures.
var errBadRequest = errors.New("bad request")

type validatorSvc struct {
	validate *validator.Validate
	trans    ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *validatorSvc
)

// validation returns the process-wide validator with English messages and
// json tag names as field names.
func validation() *validatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		_ = v.RegisterValidation("report_status", func(fl validator.FieldLevel) bool {
			return domain.IsKnownStatus(fl.Field().String())
		})
		_ = v.RegisterTranslation("report_status", trans,
			func(ut ut.Translator) error {
				return ut.Add("report_status", "{0} must be one of: {1}", true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				msg, _ := ut.T("report_status", fe.Field(), strings.Join(domain.Statuses(), ", "))
				return msg
			},
		)

		vSvc = &validatorSvc{validate: v, trans: trans}
	})
	return vSvc
}

// decodeJSON reads a single JSON object into T and validates it.
func decodeJSON[T any](r *http.Request) (T, error) {
	var zero T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	var dst T
	if err := dec.Decode(&dst); err != nil {
		if errors.Is(err, io.EOF) {
			return zero, fmt.Errorf("%w: empty body", errBadRequest)
		}
		return zero, fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	if dec.More() {
		return zero, fmt.Errorf("%w: unexpected trailing data", errBadRequest)
	}
	if err := validateStruct(dst); err != nil {
		return zero, err
	}
	return dst, nil
}

func validateStruct(v any) error {
	svc := validation()
	err := svc.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fe.Translate(svc.trans))
		}
		return fmt.Errorf("%w: %s", errBadRequest, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}
