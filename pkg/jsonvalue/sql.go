package jsonvalue

import (
	"database/sql/driver"
	"fmt"
)

// Scan implements sql.Scanner for json columns.
func (o *Object) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*o = *NewObject()
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("jsonvalue: cannot scan %T into Object", src)
	}
	parsed, err := ParseObject(raw)
	if err != nil {
		return err
	}
	*o = *parsed
	return nil
}

// Value implements driver.Valuer. The document is sent as text so json columns keep the
// key order verbatim.
func (o *Object) Value() (driver.Value, error) {
	if o == nil {
		return nil, nil
	}
	raw, err := Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
