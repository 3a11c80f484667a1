package protocol

// OptionType is the value type of an account option.
type OptionType int

const (
	OptionTypeBool OptionType = iota
	OptionTypeInt
	OptionTypeString
	OptionTypeList
)

func (t OptionType) String() string {
	switch t {
	case OptionTypeBool:
		return "bool"
	case OptionTypeInt:
		return "int"
	case OptionTypeString:
		return "string"
	case OptionTypeList:
		return "list"
	default:
		return "unknown"
	}
}

// Choice is one selectable value of a list option.
type Choice struct {
	Label string
	Value string
}

// AccountOption is a typed, user-configurable account setting declared by a
// protocol.
type AccountOption struct {
	Type     OptionType
	Text     string
	PrefName string
	// Default holds a bool, int or string matching Type. List options keep
	// the selected value as a string.
	Default any
	// Masked options hold secrets and should not be echoed.
	Masked  bool
	Choices []Choice
}

// NewBoolOption creates a boolean account option.
func NewBoolOption(text, prefName string, def bool) *AccountOption {
	return &AccountOption{Type: OptionTypeBool, Text: text, PrefName: prefName, Default: def}
}

// NewIntOption creates an integer account option.
func NewIntOption(text, prefName string, def int) *AccountOption {
	return &AccountOption{Type: OptionTypeInt, Text: text, PrefName: prefName, Default: def}
}

// NewStringOption creates a string account option.
func NewStringOption(text, prefName, def string) *AccountOption {
	return &AccountOption{Type: OptionTypeString, Text: text, PrefName: prefName, Default: def}
}

// NewListOption creates a list option. The first choice is the default.
func NewListOption(text, prefName string, choices []Choice) *AccountOption {
	opt := &AccountOption{Type: OptionTypeList, Text: text, PrefName: prefName, Choices: choices}
	if len(choices) > 0 {
		opt.Default = choices[0].Value
	}
	return opt
}

// Mask marks the option as holding a secret.
func (o *AccountOption) Mask() *AccountOption {
	o.Masked = true
	return o
}

// BoolDefault returns the default of a bool option, false otherwise.
func (o *AccountOption) BoolDefault() bool {
	if o == nil || o.Type != OptionTypeBool {
		return false
	}
	v, _ := o.Default.(bool)
	return v
}

// IntDefault returns the default of an int option, 0 otherwise.
func (o *AccountOption) IntDefault() int {
	if o == nil || o.Type != OptionTypeInt {
		return 0
	}
	v, _ := o.Default.(int)
	return v
}

// StringDefault returns the default of a string option, "" otherwise.
func (o *AccountOption) StringDefault() string {
	if o == nil || o.Type != OptionTypeString {
		return ""
	}
	v, _ := o.Default.(string)
	return v
}

// ListDefault returns the selected value of a list option, "" otherwise.
func (o *AccountOption) ListDefault() string {
	if o == nil || o.Type != OptionTypeList {
		return ""
	}
	v, _ := o.Default.(string)
	return v
}

// SetListDefault selects value if it is one of the option's choices.
func (o *AccountOption) SetListDefault(value string) bool {
	if o == nil || o.Type != OptionTypeList {
		return false
	}
	for _, c := range o.Choices {
		if c.Value == value {
			o.Default = value
			return true
		}
	}
	return false
}
