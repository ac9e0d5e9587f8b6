package check

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Validatable is implemented by configuration values whose fields carry
// their own validity rules.
type Validatable interface {
	Validate() []error
}

// Validate checks v and everything reachable from it through exported struct
// fields, map values, slice elements, and pointers, calling Validate on each
// Validatable encountered. Every failure is collected and combined into a
// single error; nothing fails fast.
func Validate(v interface{}) error {
	w := &walker{}
	w.walk(reflect.ValueOf(v), "root")
	if len(w.errs) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(w.errs))
	for _, err := range w.errs {
		msgs = append(msgs, err.Error())
	}
	sort.Strings(msgs)
	return errors.Errorf("%d validation errors:\n\t%s", len(msgs), strings.Join(msgs, "\n\t"))
}

type walker struct {
	errs []error
}

func (w *walker) walk(v reflect.Value, path string) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if !v.IsNil() {
			w.walk(v.Elem(), path)
		}
		return
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			w.walk(v.Index(i), fmt.Sprintf("%s[%d]", path, i))
		}
	case reflect.Map:
		for _, key := range v.MapKeys() {
			w.walk(v.MapIndex(key), fmt.Sprintf("%s[%v]", path, key.Interface()))
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.PkgPath != "" {
				continue
			}
			w.walk(v.Field(i), path+"."+fieldName(field))
		}
	}
	w.runChecks(v, path)
}

// runChecks invokes Validate on the value if it is Validatable. Validate may
// be declared on a pointer receiver, so the value is rewrapped in an
// addressable pointer first.
func (w *walker) runChecks(v reflect.Value, path string) {
	if !v.CanInterface() {
		return
	}
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	validatable, ok := ptr.Interface().(Validatable)
	if !ok {
		return
	}
	for _, err := range validatable.Validate() {
		if err != nil {
			w.errs = append(w.errs, errors.Wrapf(err, "error found at %s", path))
		}
	}
}

// fieldName prefers the json tag so validation errors name fields the way
// they appear in the configuration file.
func fieldName(field reflect.StructField) string {
	tag, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if tag != "" && tag != "-" {
		return tag
	}
	return field.Name
}
