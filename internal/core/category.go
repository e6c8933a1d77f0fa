package core

import "strings"

// Category is the closed set of expense categories.
type Category int

const (
	Food Category = iota + 1
	Travel
	Entertainment
	Bills
	Others
)

// AllCategories is the filter sentinel that disables the category constraint.
const AllCategories = "All"

// Categories lists the taxonomy in its fixed presentation order.
var Categories = [...]Category{Food, Travel, Entertainment, Bills, Others}

var categoryNames = map[Category]string{
	Food:          "Food",
	Travel:        "Travel",
	Entertainment: "Entertainment",
	Bills:         "Bills",
	Others:        "Others",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// ParseCategory resolves an exact category label.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, ErrInvalidCategory
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, ErrInvalidCategory
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
