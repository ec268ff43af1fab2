package models

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// StringOrNil returns nil for an empty string
func StringOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// The accessors below expose the fields the filter engine works on.
// Fields a domain does not carry report their zero value.

func (c LiveChannel) ItemID() string { return c.ID }
func (c LiveChannel) ItemName() string { return c.Name }
func (c LiveChannel) ItemDescription() string { return deref(c.Description) }
func (c LiveChannel) ItemGenre() string { return "" }
func (c LiveChannel) ItemCategory() string { return deref(c.Category) }
func (c LiveChannel) ItemLanguage() string { return "" }
func (c LiveChannel) ItemRating() float64 { return 0 }
func (c LiveChannel) ItemIsNew() bool { return false }

func (m Movie) ItemID() string { return m.ID }
func (m Movie) ItemName() string { return m.Name }
func (m Movie) ItemDescription() string { return deref(m.Description) }
func (m Movie) ItemGenre() string { return deref(m.Genre) }
func (m Movie) ItemCategory() string { return deref(m.Category) }
func (m Movie) ItemLanguage() string { return deref(m.Language) }
func (m Movie) ItemRating() float64 { return deref(m.Rating) }
func (m Movie) ItemIsNew() bool { return deref(m.IsNew) }

func (s Series) ItemID() string { return s.ID }
func (s Series) ItemName() string { return s.Name }
func (s Series) ItemDescription() string { return deref(s.Description) }
func (s Series) ItemGenre() string { return deref(s.Genre) }
func (s Series) ItemCategory() string { return deref(s.Category) }
func (s Series) ItemLanguage() string { return deref(s.Language) }
func (s Series) ItemRating() float64 { return deref(s.Rating) }
func (s Series) ItemIsNew() bool { return deref(s.IsNew) }
