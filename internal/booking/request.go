package booking

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/petalboard/petalboard-backend/internal/event"
)

const maxResponseLength = 10000

var pinPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

// CreateRequest is a guest's first submission for an event.
type CreateRequest struct {
	Name      string           `json:"name" validate:"required,min=2,max=100"`
	Email     string           `json:"email" validate:"omitempty,email,max=160"`
	Pin       string           `json:"pin" validate:"required,pin"`
	Status    event.RSVPStatus `json:"status" validate:"omitempty,oneof=attending maybe not_attending"`
	Responses map[uint]string  `json:"responses"`
}

// UpdateRequest replaces an RSVP's answers. Nil fields keep their value;
// an empty Email clears it.
type UpdateRequest struct {
	RSVPID    string            `json:"rsvpId" validate:"required"`
	Pin       string            `json:"pin" validate:"required,pin"`
	Name      *string           `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email     *string           `json:"email,omitempty" validate:"omitempty,email,max=160"`
	Status    *event.RSVPStatus `json:"status,omitempty" validate:"omitempty,oneof=attending maybe not_attending"`
	Responses map[uint]string   `json:"responses"`

	clearEmail bool
}

// Credentials identify an existing RSVP.
type Credentials struct {
	RSVPID string `json:"rsvpId" validate:"required"`
	Pin    string `json:"pin" validate:"required,pin"`
}

// Result is returned by every successful mutation.
type Result struct {
	RSVPID           string         `json:"rsvpId,omitempty"`
	RSVPCount        int64          `json:"rsvpCount"`
	PerQuestionTaken map[uint]int64 `json:"perQuestionTaken"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return pinPattern.MatchString(fl.Field().String())
	})
	return v
}

func (r *CreateRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Pin = strings.TrimSpace(r.Pin)
	if r.Status == "" {
		r.Status = event.StatusAttending
	}
}

func (r *UpdateRequest) normalize() {
	r.RSVPID = strings.TrimSpace(r.RSVPID)
	r.Pin = strings.TrimSpace(r.Pin)
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Email != nil {
		email := strings.TrimSpace(*r.Email)
		if email == "" {
			r.Email = nil
			r.clearEmail = true
		} else {
			r.Email = &email
		}
	}
}

func (c *Credentials) normalize() {
	c.RSVPID = strings.TrimSpace(c.RSVPID)
	c.Pin = strings.TrimSpace(c.Pin)
}

// check runs struct validation and answer-length checks, folding every
// problem into one ValidationError.
func check(req interface{}, responses map[uint]string) error {
	fields := map[string]string{}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate request: %w", err)
		}
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
	}
	for qid, value := range responses {
		if len(value) > maxResponseLength {
			fields[responseField(qid)] = fmt.Sprintf("Answer must be at most %d characters.", maxResponseLength)
		}
	}

	if len(fields) > 0 {
		return validationError("Please correct the highlighted fields.", fields)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "name":
		return "Name must be between 2 and 100 characters."
	case "email":
		return "Enter a valid email address."
	case "pin":
		return "PIN must be 4 to 6 digits."
	case "status":
		return "Status must be attending, maybe, or not_attending."
	case "rsvpId":
		return "RSVP ID is required."
	}
	return fmt.Sprintf("%s is invalid (%s).", fe.Field(), fe.Tag())
}

func responseField(questionID uint) string {
	return fmt.Sprintf("responses.%d", questionID)
}
