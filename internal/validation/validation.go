package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"quiz-learning-service/internal/domain"
)

var (
	once     sync.Once
	validate *govalidator.Validate
	trans    ut.Translator
)

func setup() {
	validate = govalidator.New()
	// Use JSON tag name for field names in error messages.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)
}

// GenerationRequest checks a request before it reaches the generator. It
// returns a *domain.ValidationError listing every offending field.
func GenerationRequest(req domain.GenerationRequest) error {
	once.Do(setup)

	fields := make(map[string]string)
	if err := validate.Struct(req); err != nil {
		var ve govalidator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
	}

	hasTopic := strings.TrimSpace(req.Topic) != ""
	hasDocument := req.Document != nil
	switch req.Method {
	case domain.MethodTopic:
		if !hasTopic {
			fields["topic"] = "Please enter a quiz topic"
		}
		if hasDocument {
			fields["document"] = "document must not be set for topic generation"
		}
	case domain.MethodDocument:
		if !hasDocument || strings.TrimSpace(req.Document.Name) == "" {
			fields["document"] = "Please upload a document"
		}
		if hasTopic {
			fields["topic"] = "topic must not be set for document generation"
		}
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}
