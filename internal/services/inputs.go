package services

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/vikasavnish/heirloom/internal/dates"
	"github.com/vikasavnish/heirloom/internal/models"
)

var validate = newValidator()

// newValidator adds "singleline" for values written as one GEDCOM line.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("singleline", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), "\r\n")
	})
	return v
}

// NewPerson describes a person created as part of an operation.
type NewPerson struct {
	FirstName string     `validate:"required_without=LastName,max=100,singleline"`
	LastName  string     `validate:"required_without=FirstName,max=100,singleline"`
	Sex       models.Sex `validate:"omitempty,oneof=M F U"`
	BirthDate string     `validate:"max=100,singleline"`
	DeathDate string     `validate:"max=100,singleline"`
}

// PersonRef points at an existing person or describes a new one. Exactly one
// of the fields must be set.
type PersonRef struct {
	ExistingID uint
	New        *NewPerson
}

// Existing returns a reference to a stored person.
func Existing(id uint) PersonRef {
	return PersonRef{ExistingID: id}
}

// Create returns a reference to a person that is created on use.
func Create(p NewPerson) PersonRef {
	return PersonRef{New: &p}
}

// EventInput carries the editable fields of a person or family event.
type EventInput struct {
	Type        string `validate:"required"`
	Date        string `validate:"max=100,singleline"`
	Place       string `validate:"max=200,singleline"`
	Description string
}

func (in EventInput) empty() bool {
	return strings.TrimSpace(in.Date) == "" &&
		strings.TrimSpace(in.Place) == "" &&
		strings.TrimSpace(in.Description) == ""
}

// PersonDetails are the editable attributes of a person.
type PersonDetails struct {
	FirstName  string     `validate:"required_without=LastName,max=100,singleline"`
	LastName   string     `validate:"required_without=FirstName,max=100,singleline"`
	Sex        models.Sex `validate:"omitempty,oneof=M F U"`
	DeathCause string     `validate:"max=100,singleline"`
}

func validationError(base *models.Error, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+" "+fe.Tag())
		}
		return base.Detail("%s", strings.Join(fields, ", "))
	}
	return base.Wrap(err)
}

// candidate is a resolved PersonRef. New people are only written by
// materialize, after every precondition has passed.
type candidate struct {
	person *models.Person
	birth  *int
	death  *int
	input  *NewPerson
}

func (c *candidate) isNew() bool {
	return c.input != nil
}

func (c *candidate) is(id uint) bool {
	return !c.isNew() && c.person.ID == id
}

func (c *candidate) span() lifespan {
	return lifespan{Birth: c.birth, Death: c.death}
}

func newCandidate(treeID uint, input *NewPerson, defaultSex models.Sex) (*candidate, error) {
	if err := validate.Struct(input); err != nil {
		return nil, validationError(models.ErrInvalidPerson, err)
	}
	sex := input.Sex
	if sex == "" {
		sex = defaultSex
	}
	return &candidate{
		person: &models.Person{
			TreeID:    treeID,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Sex:       sex,
		},
		birth: dates.YearPtr(input.BirthDate),
		death: dates.YearPtr(input.DeathDate),
		input: input,
	}, nil
}
