package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Address is the delivery address captured at checkout.
// It is immutable and stored as a JSON column on the order.
type Address struct {
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

const maxAddressFieldLength = 200

// NewAddress trims and validates the address fields.
// Recipient, line1, city and country are required.
func NewAddress(a Address) (Address, error) {
	a.Recipient = strings.TrimSpace(a.Recipient)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.City = strings.TrimSpace(a.City)
	a.Province = strings.TrimSpace(a.Province)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))

	required := map[string]string{
		"recipient": a.Recipient,
		"line1":     a.Line1,
		"city":      a.City,
		"country":   a.Country,
	}
	for field, value := range required {
		if value == "" {
			return Address{}, fmt.Errorf("address %s is required", field)
		}
	}
	for _, value := range []string{a.Recipient, a.Phone, a.Line1, a.Line2, a.City, a.Province, a.PostalCode} {
		if utf8.RuneCountInString(value) > maxAddressFieldLength {
			return Address{}, fmt.Errorf("address field exceeds %d characters", maxAddressFieldLength)
		}
	}
	if len(a.Country) != 2 {
		return Address{}, errors.New("address country must be a 2-letter ISO code")
	}
	return a, nil
}

// IsEmpty reports whether no address was captured
func (a Address) IsEmpty() bool {
	return a.Line1 == "" && a.City == "" && a.Country == ""
}

// String renders the address on one line
func (a Address) String() string {
	parts := []string{a.Recipient, a.Line1}
	for _, p := range []string{a.Line2, a.City, a.Province, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Value implements driver.Valuer
func (a Address) Value() (driver.Value, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *Address) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*a = Address{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), a)
	case []byte:
		return json.Unmarshal(v, a)
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}
}
