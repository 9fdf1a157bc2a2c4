package domainevents

import (
	"errors"
	"fmt"
	"reflect"

	jsoniter "github.com/json-iterator/go"
)

var ErrUnsupportedTargetType = errors.New("unsupported mapping target type")

// Mapper builds an event of targetType from an entity's current state.
type Mapper interface {
	Map(source any, sourceType reflect.Type, targetType reflect.Type) (any, error)
}

// MapperFunc adapts a function to the Mapper interface.
type MapperFunc func(source any, sourceType reflect.Type, targetType reflect.Type) (any, error)

// Map calls f.
func (f MapperFunc) Map(source any, sourceType reflect.Type, targetType reflect.Type) (any, error) {
	return f(source, sourceType, targetType)
}

// JSONMapper maps by encoding the entity's exported fields to JSON and decoding them into a new target value.
// Fields are matched by name (or json tag), unmatched fields are left at their zero value.
//
// A pointer target type yields a pointer to a new value, any other struct type yields the value itself.
type JSONMapper struct {
	api jsoniter.API
}

// NewJSONMapper creates a JSONMapper with the standard library compatible json-iterator configuration.
func NewJSONMapper() JSONMapper {
	return JSONMapper{api: jsoniter.ConfigCompatibleWithStandardLibrary}
}

// Map implements Mapper.
func (m JSONMapper) Map(source any, _ reflect.Type, targetType reflect.Type) (any, error) {
	if targetType == nil {
		return nil, ErrUnsupportedTargetType
	}

	elemType := targetType
	if targetType.Kind() == reflect.Pointer {
		elemType = targetType.Elem()
	}

	if elemType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTargetType, targetType)
	}

	api := m.api
	if api == nil {
		api = jsoniter.ConfigCompatibleWithStandardLibrary
	}

	sourceJSON, err := api.Marshal(source)
	if err != nil {
		return nil, err
	}

	target := reflect.New(elemType)
	if err := api.Unmarshal(sourceJSON, target.Interface()); err != nil {
		return nil, err
	}

	if targetType.Kind() == reflect.Pointer {
		return target.Interface(), nil
	}

	return target.Elem().Interface(), nil
}

// Ensure JSONMapper implements Mapper.
var _ Mapper = JSONMapper{}
