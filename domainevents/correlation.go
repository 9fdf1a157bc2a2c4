package domainevents

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

const (
	// SourceTypeKey is the additional data key holding the qualified type name of the emitting entity.
	SourceTypeKey = "sourceType"

	// SourceKeysKey is the additional data key holding the JSON object of the emitting entity's primary key.
	SourceKeysKey = "sourceKeys"
)

var ErrMarshalingPrimaryKeyFailed = errors.New("marshaling primary key to json failed")

// AdditionalDataCarrier is implemented by events that accept correlation metadata.
// Capture replaces the whole data set with exactly the sourceType and sourceKeys entries.
type AdditionalDataCarrier interface {
	TryGetAdditionalData() (map[string]string, bool)
	SetAdditionalData(data map[string]string)
}

// AdditionalData is an embeddable AdditionalDataCarrier. Events embedding it must be queued as pointers.
type AdditionalData struct {
	mu   sync.Mutex
	data map[string]string
}

// TryGetAdditionalData returns a copy of the data and whether any was set.
func (a *AdditionalData) TryGetAdditionalData() (map[string]string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.data == nil {
		return nil, false
	}

	dataCopy := make(map[string]string, len(a.data))
	for k, v := range a.data {
		dataCopy[k] = v
	}

	return dataCopy, true
}

// SetAdditionalData replaces the data with a copy of the given map.
func (a *AdditionalData) SetAdditionalData(data map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.data = make(map[string]string, len(data))
	for k, v := range data {
		a.data[k] = v
	}
}

// Ensure AdditionalData implements AdditionalDataCarrier.
var _ AdditionalDataCarrier = (*AdditionalData)(nil)

// KeyColumn is one primary key column and its value.
type KeyColumn struct {
	Name  string
	Value any
}

// PrimaryKey is an ordered list of key columns. Column names compare case-insensitively.
type PrimaryKey []KeyColumn

// Key builds a single-column PrimaryKey.
func Key(name string, value any) PrimaryKey {
	return PrimaryKey{}.With(name, value)
}

// With returns a copy of the key with the column set. A column whose name matches
// case-insensitively is replaced in place, keeping its original spelling.
func (pk PrimaryKey) With(name string, value any) PrimaryKey {
	next := make(PrimaryKey, len(pk), len(pk)+1)
	copy(next, pk)

	for i := range next {
		if strings.EqualFold(next[i].Name, name) {
			next[i].Value = value
			return next
		}
	}

	return append(next, KeyColumn{Name: name, Value: value})
}

// Get returns the value of the column matching name case-insensitively.
func (pk PrimaryKey) Get(name string) (any, bool) {
	for _, col := range pk {
		if strings.EqualFold(col.Name, name) {
			return col.Value, true
		}
	}

	return nil, false
}

// Columns returns the column names in key order.
func (pk PrimaryKey) Columns() []string {
	names := make([]string, 0, len(pk))
	for _, col := range pk {
		names = append(names, col.Name)
	}

	return names
}

// MarshalJSON renders the key as a JSON object in column order.
func (pk PrimaryKey) MarshalJSON() ([]byte, error) {
	api := jsoniter.ConfigCompatibleWithStandardLibrary
	stream := api.BorrowStream(nil)
	defer api.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, col := range pk {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(col.Name)
		stream.WriteVal(col.Value)
	}
	stream.WriteObjectEnd()

	if stream.Error != nil {
		return nil, errors.Join(ErrMarshalingPrimaryKeyFailed, stream.Error)
	}

	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())

	return out, nil
}

// TrackedEntity is one entry of a unit of work snapshot.
type TrackedEntity struct {
	Entity any
	Keys   PrimaryKey
}

// RuntimeType returns the dynamic type of the entity.
func (te TrackedEntity) RuntimeType() reflect.Type {
	return reflect.TypeOf(te.Entity)
}

// QualifiedTypeName returns "<package path>.<type name>" with pointers dereferenced.
// Unnamed types fall back to their String representation.
func QualifiedTypeName(t reflect.Type) string {
	if t == nil {
		return ""
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}

	return t.PkgPath() + "." + t.Name()
}

// CorrelationData builds the sourceType/sourceKeys entries for the given entity.
func CorrelationData(entity TrackedEntity) (map[string]string, error) {
	keysJSON, err := entity.Keys.MarshalJSON()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		SourceTypeKey: QualifiedTypeName(entity.RuntimeType()),
		SourceKeysKey: string(keysJSON),
	}, nil
}
