package reconcile

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const nonFieldErrors = "non_field_errors"

// typeErrors holds the messages of values whose JSON type did not fit their
// field. They are reported together with the validation errors.
type typeErrors struct {
	fields  map[string][]string
	entries map[string][]map[string][]string
}

func (te *typeErrors) add(collection string, errs []map[string][]string) {
	if errs != nil {
		te.entries[collection] = errs
	}
}

// UnmarshalJSON decodes a hardware document. Mistyped values are kept as
// validation errors; only a document that is not shaped like one fails.
func (in *HardwareInput) UnmarshalJSON(b []byte) error {
	raw, err := object(b)
	if err != nil {
		return err
	}
	*in = HardwareInput{}
	te := &typeErrors{fields: decodeFields(raw, in), entries: map[string][]map[string][]string{}}
	children, err := object(raw["one2m"])
	if err != nil {
		return errors.Wrap(err, "one2m")
	}
	var errs []map[string][]string
	if in.One2m.Instances, errs, err = decodeCollection[HardwareInstanceInput](children["instances"]); err != nil {
		return errors.Wrap(err, "instances")
	}
	te.add("instances", errs)
	in.decoded = te
	return nil
}

// UnmarshalJSON decodes a software document the same way.
func (in *SoftwareInput) UnmarshalJSON(b []byte) error {
	raw, err := object(b)
	if err != nil {
		return err
	}
	*in = SoftwareInput{}
	te := &typeErrors{fields: decodeFields(raw, in), entries: map[string][]map[string][]string{}}
	children, err := object(raw["one2m"])
	if err != nil {
		return errors.Wrap(err, "one2m")
	}
	var errs []map[string][]string
	if in.One2m.Instances, errs, err = decodeCollection[SoftwareInstanceInput](children["instances"]); err != nil {
		return errors.Wrap(err, "instances")
	}
	te.add("instances", errs)
	if in.One2m.Subscriptions, errs, err = decodeCollection[SubscriptionInput](children["subscriptions"]); err != nil {
		return errors.Wrap(err, "subscriptions")
	}
	te.add("subscriptions", errs)
	in.decoded = te
	return nil
}

func isNull(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || string(b) == "null"
}

// object splits a JSON object into its members. Null or missing is empty.
func object(b []byte) (map[string]json.RawMessage, error) {
	if isNull(b) {
		return nil, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "expected an object")
	}
	return m, nil
}

// decodeCollection decodes {"data": [...], "delete": [...]}. Entries that are
// not objects or hold mistyped values are reported per index.
func decodeCollection[T any](b []byte) (Collection[T], []map[string][]string, error) {
	var c Collection[T]
	if isNull(b) {
		return c, nil, nil
	}
	var raw struct {
		Data   []json.RawMessage `json:"data"`
		Delete []uint            `json:"delete"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return c, nil, err
	}
	c.Delete = raw.Delete
	if raw.Data == nil {
		return c, nil, nil
	}
	c.Data = make([]T, len(raw.Data))
	errs := make([]map[string][]string, len(raw.Data))
	bad := false
	for i, d := range raw.Data {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(d, &fields); err != nil || fields == nil {
			errs[i] = map[string][]string{nonFieldErrors: {"Invalid data. Expected a dictionary."}}
			bad = true
			continue
		}
		errs[i] = decodeFields(fields, &c.Data[i])
		if len(errs[i]) > 0 {
			bad = true
		}
	}
	if !bad {
		return c, nil, nil
	}
	return c, errs, nil
}

// decodeFields fills the scalar fields of the struct dst points to and
// returns a message for every member that did not fit. Nested structs are
// left to the caller.
func decodeFields(raw map[string]json.RawMessage, dst any) map[string][]string {
	out := map[string][]string{}
	v := reflect.ValueOf(dst).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if !f.IsExported() || name == "" || name == "-" || f.Type.Kind() == reflect.Struct {
			continue
		}
		data, ok := raw[name]
		if !ok {
			continue
		}
		if msg := decodeValue(data, v.Field(i)); msg != "" {
			out[name] = []string{msg}
		}
	}
	return out
}

// decodeValue stores one JSON value into v. Numbers are accepted for text
// and numeric text for integers; anything else that does not fit leaves v
// zero and returns the message to report.
func decodeValue(data json.RawMessage, v reflect.Value) string {
	if isNull(data) {
		v.Set(reflect.Zero(v.Type()))
		return ""
	}
	if v.Kind() == reflect.Pointer {
		p := reflect.New(v.Type().Elem())
		if msg := decodeValue(data, p.Elem()); msg != "" {
			return msg
		}
		v.Set(p)
		return ""
	}

	var x any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&x); err != nil {
		return "Invalid value."
	}
	switch v.Kind() {
	case reflect.String:
		switch x := x.(type) {
		case string:
			v.SetString(x)
		case json.Number:
			v.SetString(x.String())
		default:
			return "Not a valid string."
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := integer(x)
		if !ok || v.OverflowInt(n) {
			return "A valid integer is required."
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := integer(x)
		if !ok || n < 0 || v.OverflowUint(uint64(n)) {
			return "A valid integer is required."
		}
		v.SetUint(uint64(n))
	case reflect.Bool:
		b, ok := x.(bool)
		if !ok {
			return "Must be a valid boolean."
		}
		v.SetBool(b)
	default:
		if err := json.Unmarshal(data, v.Addr().Interface()); err != nil {
			return "Invalid value."
		}
	}
	return ""
}

// integer reads a whole number from a JSON number or numeric string.
func integer(x any) (int64, bool) {
	var s string
	switch x := x.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	default:
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

// merge folds decode errors into e. A type message replaces the validation
// messages of its key; an entry that was not an object keeps only its own.
func (e *ValidationError) merge(te *typeErrors) {
	if te == nil {
		return
	}
	for k, v := range te.fields {
		e.Fields[k] = v
	}
	for name, entries := range te.entries {
		have := e.Collections[name]
		if len(have) != len(entries) {
			have = make([]map[string][]string, len(entries))
			for i := range have {
				have[i] = map[string][]string{}
			}
		}
		for i, entry := range entries {
			if _, ok := entry[nonFieldErrors]; ok {
				have[i] = entry
				continue
			}
			for k, v := range entry {
				have[i][k] = v
			}
		}
		e.Collections[name] = have
	}
}
