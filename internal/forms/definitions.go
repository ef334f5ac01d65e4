package forms

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/opsboard/internal/backend"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldType selects the input control and how submitted text is coerced.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEmail
	FieldPhone
	FieldNumber
	FieldBool
	FieldSelect
)

// Field is one editable attribute of an entity.
type Field struct {
	Name     string
	Label    string
	Type     FieldType
	Rules    string // validator tag applied to the coerced value
	Options  []string
	ReadOnly bool
}

// Definition is one edit form: which entity it patches and which fields it
// exposes.
type Definition struct {
	Key      string
	Label    string
	Resource backend.Resource
	Fields   []Field
}

// Field returns a field by name.
func (d Definition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Parse coerces and validates a submission. Only fields present in values
// are returned; unknown and read-only fields are ignored.
func (d Definition) Parse(values url.Values) (map[string]any, error) {
	out := make(map[string]any)
	errs := FieldErrors{}

	for _, f := range d.Fields {
		if f.ReadOnly {
			continue
		}
		raw, present := values[f.Name]
		if !present {
			// Unchecked checkboxes are not submitted.
			if f.Type == FieldBool && values.Has("_present_"+f.Name) {
				out[f.Name] = false
			}
			continue
		}

		text := ""
		if len(raw) > 0 {
			text = strings.TrimSpace(raw[len(raw)-1])
		}

		v, err := coerce(f, text)
		if err != nil {
			errs[f.Name] = err.Error()
			continue
		}
		if v == nil {
			if strings.Contains(f.Rules, "required") {
				errs[f.Name] = messageForTag("required", "")
				continue
			}
			out[f.Name] = nil
			continue
		}
		if f.Rules != "" {
			if err := validate.Var(v, f.Rules); err != nil {
				errs[f.Name] = varMessage(err)
				continue
			}
		}
		out[f.Name] = v
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// Diff parses a submission and diffs it against the server's record.
func (d Definition) Diff(original map[string]any, values url.Values) (*Diff, error) {
	parsed, err := d.Parse(values)
	if err != nil {
		return nil, err
	}
	return DiffFrom(original, parsed), nil
}

func coerce(f Field, text string) (any, error) {
	switch f.Type {
	case FieldNumber:
		if text == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, errors.New("Must be a number.")
		}
		return n, nil
	case FieldBool:
		switch strings.ToLower(text) {
		case "on", "true", "1", "yes":
			return true, nil
		case "", "off", "false", "0", "no":
			return false, nil
		}
		return nil, errors.New("Must be yes or no.")
	case FieldSelect:
		if text != "" {
			for _, opt := range f.Options {
				if opt == text {
					return text, nil
				}
			}
			return nil, fmt.Errorf("Must be one of: %s.", strings.Join(f.Options, ", "))
		}
		return text, nil
	default:
		return text, nil
	}
}

func varMessage(err error) string {
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		return messageForTag(ve[0].Tag(), ve[0].Param())
	}
	return "Invalid value."
}

var registry = map[string]Definition{}

func register(d Definition) {
	if _, exists := registry[d.Key]; exists {
		panic("form already registered: " + d.Key)
	}
	registry[d.Key] = d
}

// Get returns a form definition by key.
func Get(key string) (Definition, bool) {
	d, ok := registry[key]
	return d, ok
}

// All returns every form, sorted by key.
func All() []Definition {
	out := make([]Definition, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func init() {
	register(Definition{
		Key:      "retail-general",
		Label:    "Store details",
		Resource: backend.ResourceRetail,
		Fields: []Field{
			{Name: "name", Label: "Store name", Rules: "required,min=2,max=120"},
			{Name: "email", Label: "Email", Type: FieldEmail, Rules: "required,email"},
			{Name: "phone", Label: "Phone", Type: FieldPhone, Rules: "omitempty,e164"},
			{Name: "website", Label: "Website", Rules: "omitempty,http_url"},
			{Name: "address", Label: "Street address", Rules: "omitempty,max=255"},
			{Name: "city", Label: "City", Rules: "omitempty,max=100"},
			{Name: "state", Label: "State", Rules: "omitempty,len=2"},
			{Name: "zip", Label: "ZIP", Rules: "omitempty,numeric,len=5"},
			{Name: "latitude", Label: "Latitude", Type: FieldNumber, ReadOnly: true},
			{Name: "longitude", Label: "Longitude", Type: FieldNumber, ReadOnly: true},
		},
	})

	register(Definition{
		Key:      "retail-billing",
		Label:    "Billing",
		Resource: backend.ResourceRetail,
		Fields: []Field{
			{Name: "billingEmail", Label: "Billing email", Type: FieldEmail, Rules: "omitempty,email"},
			{Name: "billingContact", Label: "Billing contact", Rules: "omitempty,max=120"},
			{Name: "taxId", Label: "Tax ID", Rules: "omitempty,max=32"},
			{Name: "paymentTerms", Label: "Payment terms", Type: FieldSelect, Options: []string{"due_on_receipt", "net15", "net30"}},
			{Name: "deliveryFee", Label: "Delivery fee", Type: FieldNumber, Rules: "omitempty,gte=0,lte=1000"},
			{Name: "autoCharge", Label: "Charge card automatically", Type: FieldBool},
		},
	})

	register(Definition{
		Key:      "driver",
		Label:    "Driver",
		Resource: backend.ResourceDriver,
		Fields: []Field{
			{Name: "firstName", Label: "First name", Rules: "required,min=1,max=100"},
			{Name: "lastName", Label: "Last name", Rules: "required,min=1,max=100"},
			{Name: "email", Label: "Email", Type: FieldEmail, Rules: "required,email"},
			{Name: "phone", Label: "Phone", Type: FieldPhone, Rules: "omitempty,e164"},
			{Name: "vehicleType", Label: "Vehicle", Type: FieldSelect, Options: []string{"car", "bike", "scooter", "van"}},
			{Name: "licensePlate", Label: "License plate", Rules: "omitempty,max=16"},
			{Name: "active", Label: "Active", Type: FieldBool},
		},
	})

	register(Definition{
		Key:      "admin",
		Label:    "Admin user",
		Resource: backend.ResourceAdmin,
		Fields: []Field{
			{Name: "firstName", Label: "First name", Rules: "required,min=1,max=100"},
			{Name: "lastName", Label: "Last name", Rules: "required,min=1,max=100"},
			{Name: "email", Label: "Email", Type: FieldEmail, Rules: "required,email"},
			{Name: "role", Label: "Role", Type: FieldSelect, Options: []string{"admin", "manager", "support"}},
		},
	})
}
