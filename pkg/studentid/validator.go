package studentid

import "github.com/go-playground/validator/v10"

// RegisterValidators adds the student_id, card_id and pin tags to v.
func RegisterValidators(v *validator.Validate) error {
	rules := map[string]func(string) bool{
		"student_id": IsValidStudentID,
		"card_id":    IsValidCardID,
		"pin":        IsValidPIN,
	}
	for tag, rule := range rules {
		rule := rule
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return rule(fl.Field().String())
		}); err != nil {
			return err
		}
	}
	return nil
}

// NewValidator returns a validator with the identifier tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterValidators(v); err != nil {
		panic(err)
	}
	return v
}
