package utils

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// MinInt checks an int or *int field is at least min. Nil pointers pass.
// Unlike validation.Min it also rejects zero values.
func MinInt(min int) validation.Rule {
	return validation.By(func(value interface{}) error {
		var n int
		switch v := value.(type) {
		case int:
			n = v
		case *int:
			if v == nil {
				return nil
			}
			n = *v
		default:
			return errors.New("must be an integer")
		}
		if n < min {
			return fmt.Errorf("must be no less than %d", min)
		}
		return nil
	})
}

// NotBlank rejects a *string that is set but empty after trimming. Nil passes.
var NotBlank = validation.By(func(value interface{}) error {
	if v, ok := value.(*string); ok && v != nil && strings.TrimSpace(*v) == "" {
		return errors.New("cannot be blank")
	}
	return nil
})
