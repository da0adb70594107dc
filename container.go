package soarmock

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
)

// ErrInvalidContainer is returned when a value cannot be used as a container reference.
var ErrInvalidContainer = errors.New("invalid container")

// ScratchDirName is the directory under a vault root reserved for scratch
// files. No container may use it as its reference.
const ScratchDirName = "tmpdir"

// Container is the minimal container model handed to connectors.
type Container struct {
	ID int `json:"id"`
}

// ContainerRef is the string form of a container identifier. It only
// namespaces storage directories; nothing checks that the container exists.
type ContainerRef string

// String implements fmt.Stringer.
func (c ContainerRef) String() string {
	return string(c)
}

// ParseContainer normalises the container forms callers pass around:
// integers, strings, Container values, and mappings with string keys carrying
// an "id" field. Mappings are unwrapped to their id, so {"id": 1} and 1
// resolve to the same ref.
//
// A ref names one directory under the vault root, so refs containing a path
// separator, "." and "..", and the scratch directory name are rejected.
func ParseContainer(v any) (ContainerRef, error) {
	switch c := v.(type) {
	case ContainerRef:
		return parseRef(string(c))
	case string:
		return parseRef(c)
	case json.Number:
		// Decoders using UseNumber hand ids over in this form.
		if i, err := c.Int64(); err == nil {
			return ContainerRef(strconv.FormatInt(i, 10)), nil
		}
		return parseRef(c.String())
	case int:
		return ContainerRef(strconv.Itoa(c)), nil
	case int64:
		return ContainerRef(strconv.FormatInt(c, 10)), nil
	case float64:
		// JSON numbers decode as float64; only whole values are ids.
		if c != float64(int64(c)) {
			return "", fmt.Errorf("%w: non-integer id %v", ErrInvalidContainer, c)
		}
		return ContainerRef(strconv.FormatInt(int64(c), 10)), nil
	case Container:
		return ContainerRef(strconv.Itoa(c.ID)), nil
	case *Container:
		if c == nil {
			return "", fmt.Errorf("%w: nil container", ErrInvalidContainer)
		}
		return ContainerRef(strconv.Itoa(c.ID)), nil
	case map[string]any:
		id, ok := c["id"]
		if !ok {
			return "", fmt.Errorf("%w: mapping has no id field", ErrInvalidContainer)
		}
		return parseID(id)
	case nil:
		return "", fmt.Errorf("%w: nil", ErrInvalidContainer)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ContainerRef(strconv.FormatInt(rv.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ContainerRef(strconv.FormatUint(rv.Uint(), 10)), nil
	case reflect.String:
		return parseRef(rv.String())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		idv := rv.MapIndex(reflect.ValueOf("id").Convert(rv.Type().Key()))
		if !idv.IsValid() {
			return "", fmt.Errorf("%w: mapping has no id field", ErrInvalidContainer)
		}
		return parseID(idv.Interface())
	}
	return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidContainer, v)
}

func parseID(id any) (ContainerRef, error) {
	if id != nil && reflect.TypeOf(id).Kind() == reflect.Map {
		return "", fmt.Errorf("%w: nested mapping id", ErrInvalidContainer)
	}
	return ParseContainer(id)
}

func parseRef(s string) (ContainerRef, error) {
	switch {
	case s == "":
		return "", fmt.Errorf("%w: empty reference", ErrInvalidContainer)
	case strings.ContainsRune(s, '/') || strings.ContainsRune(s, filepath.Separator):
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidContainer, s)
	case s == "." || s == "..":
		return "", fmt.Errorf("%w: %q is not a directory name", ErrInvalidContainer, s)
	case s == ScratchDirName:
		return "", fmt.Errorf("%w: %q is reserved", ErrInvalidContainer, s)
	}
	return ContainerRef(s), nil
}
