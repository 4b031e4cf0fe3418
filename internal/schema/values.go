package schema

// Values holds the typed result of Schema.Extract.
type Values struct {
	// Raw is the reply text the values were extracted from.
	Raw string

	values    map[string]any
	defaulted []string
}

func (v *Values) setDefault(f Field) {
	v.defaulted = append(v.defaulted, f.Name)

	switch {
	case f.Kind == Text && f.RawFallback:
		v.values[f.Name] = v.Raw
	case f.Kind == List:
		list, _ := f.Default.([]string)
		v.values[f.Name] = append([]string{}, list...)
	default:
		v.values[f.Name] = f.Default
	}
}

// Text returns a Text or Enum field.
func (v Values) Text(name string) string {
	s, _ := v.values[name].(string)
	return s
}

// Int returns an Int field.
func (v Values) Int(name string) int {
	n, _ := v.values[name].(int)
	return n
}

// Bool returns a Bool field.
func (v Values) Bool(name string) bool {
	b, _ := v.values[name].(bool)
	return b
}

// List returns a List field. The result is never nil.
func (v Values) List(name string) []string {
	l, ok := v.values[name].([]string)
	if !ok || l == nil {
		return []string{}
	}
	return l
}

// Defaulted returns the names of fields that fell back to their default,
// in schema order.
func (v Values) Defaulted() []string {
	return v.defaulted
}

// IsDefault reports whether the named field fell back to its default.
func (v Values) IsDefault(name string) bool {
	for _, n := range v.defaulted {
		if n == name {
			return true
		}
	}
	return false
}
