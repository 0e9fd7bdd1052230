package forms

// Field types understood by the form templates
const (
	FieldText     = "text"
	FieldTextarea = "textarea"
	FieldSelect   = "select"
	FieldFile     = "file"
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldSubmit   = "submit"
)

// SubmitField is the name of the submit marker; a POST without it is not a submission
const SubmitField = "submit"

// Option is one choice of a select field
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Field describes one rendered form control with its current value and error
type Field struct {
	Name     string
	Label    string
	Type     string
	Required bool
	Value    string
	Error    string
	Options  []Option
	Accept   string
}

// Form is the field specification handed to the renderer
type Form struct {
	Name      string
	Action    string
	Multipart bool
	Submitted bool
	Fields    []Field
}

// Valid reports whether no field carries an error
func (f *Form) Valid() bool {
	for _, fld := range f.Fields {
		if fld.Error != "" {
			return false
		}
	}
	return true
}

// Field returns the named field, or nil
func (f *Form) Field(name string) *Field {
	for i := range f.Fields {
		if f.Fields[i].Name == name {
			return &f.Fields[i]
		}
	}
	return nil
}
