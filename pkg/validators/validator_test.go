package validators

import (
	"testing"

	"github.com/labstack/echo/v4"
)

type sample struct {
	Content string `validate:"required,min=1,max=5"`
}

func TestValidatePassesValidStruct(t *testing.T) {
	v := NewValidator()
	if err := v.Validate(sample{Content: "ok"}); err != nil {
		t.Fatalf("Validate(valid) = %v, want nil", err)
	}
}

func TestValidateRejectsInvalidStruct(t *testing.T) {
	v := NewValidator()

	err := v.Validate(sample{Content: ""})
	if err == nil {
		t.Fatal("Validate(empty) = nil, want error")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("Validate(empty) returned %T, want *echo.HTTPError", err)
	}
	if he.Code != 400 {
		t.Fatalf("status = %d, want 400", he.Code)
	}

	if err := v.Validate(sample{Content: "toolong"}); err == nil {
		t.Fatal("Validate(over max) = nil, want error")
	}
}
