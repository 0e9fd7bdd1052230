package forms

import "strings"

// RegistrationAction is where the registration form posts to
const RegistrationAction = "/membre/inscription"

// bcrypt refuses passwords longer than 72 bytes
const maxPasswordBytes = 72

// RegistrationInput carries the raw submitted registration fields
type RegistrationInput struct {
	FirstName string `form:"firstname" validate:"required,max=100"`
	LastName  string `form:"lastname" validate:"required,max=100"`
	Email     string `form:"email" validate:"required,email,max=180"`
	Password  string `form:"password" validate:"required"`
	Submitted bool   `form:"-" validate:"-"`
}

// ValidatedUser is a registration that passed every field rule; Password is still clear text
type ValidatedUser struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// ValidateRegistration checks in against the registration rules.
// FieldErrors is nil when the submission is valid.
func ValidateRegistration(in RegistrationInput) (ValidatedUser, FieldErrors) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)

	fe := FieldErrors{}
	if err := collect(in, fe); err != nil {
		fe.Add("form", err.Error())
	}
	if len(in.Password) > maxPasswordBytes {
		fe.Add("password", "Ce mot de passe est trop long.")
	}
	if !fe.Valid() {
		return ValidatedUser{}, fe
	}
	return ValidatedUser{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  in.Password,
	}, nil
}

// RegistrationForm builds the registration field specification. The password is never echoed back.
func RegistrationForm(in RegistrationInput, fe FieldErrors) *Form {
	return &Form{
		Name:      "registration",
		Action:    RegistrationAction,
		Submitted: in.Submitted,
		Fields: []Field{
			{Name: "firstname", Label: "Prénom", Type: FieldText, Required: true, Value: in.FirstName, Error: fe.Get("firstname")},
			{Name: "lastname", Label: "Nom", Type: FieldText, Required: true, Value: in.LastName, Error: fe.Get("lastname")},
			{Name: "email", Label: "Email", Type: FieldEmail, Required: true, Value: in.Email, Error: fe.Get("email")},
			{Name: "password", Label: "Mot de passe", Type: FieldPassword, Required: true, Error: fe.Get("password")},
			{Name: SubmitField, Label: "S'inscrire", Type: FieldSubmit},
		},
	}
}
