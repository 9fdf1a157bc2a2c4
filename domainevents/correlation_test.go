package domainevents_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

func Test_PrimaryKey_ColumnsCompareCaseInsensitively(t *testing.T) {
	key := domainevents.Key("TenantID", 7).
		With("OrderID", "o-1").
		With("tenantid", 8)

	assert.Equal(t, []string{"TenantID", "OrderID"}, key.Columns())

	value, found := key.Get("TENANTID")
	assert.True(t, found)
	assert.Equal(t, 8, value)

	_, found = key.Get("missing")
	assert.False(t, found)
}

func Test_PrimaryKey_With_DoesNotModifyReceiver(t *testing.T) {
	original := domainevents.Key("ID", 1)
	_ = original.With("id", 2)

	value, _ := original.Get("ID")
	assert.Equal(t, 1, value)
}

func Test_PrimaryKey_MarshalJSON_KeepsColumnOrder(t *testing.T) {
	key := domainevents.Key("Zeta", "z").With("Alpha", 1).With("Flag", true)

	keyJSON, err := key.MarshalJSON()

	require.NoError(t, err)
	assert.Equal(t, `{"Zeta":"z","Alpha":1,"Flag":true}`, string(keyJSON))
}

func Test_PrimaryKey_MarshalJSON_Empty(t *testing.T) {
	keyJSON, err := domainevents.PrimaryKey{}.MarshalJSON()

	require.NoError(t, err)
	assert.Equal(t, `{}`, string(keyJSON))
}

func Test_QualifiedTypeName(t *testing.T) {
	pkgPath := reflect.TypeFor[orderEntity]().PkgPath()

	tests := []struct {
		name     string
		typ      reflect.Type
		expected string
	}{
		{name: "named struct", typ: reflect.TypeFor[orderEntity](), expected: pkgPath + ".orderEntity"},
		{name: "pointer is dereferenced", typ: reflect.TypeFor[*orderEntity](), expected: pkgPath + ".orderEntity"},
		{name: "predeclared type", typ: reflect.TypeFor[int](), expected: "int"},
		{name: "unnamed type", typ: reflect.TypeFor[map[string]int](), expected: "map[string]int"},
		{name: "nil type", typ: nil, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, domainevents.QualifiedTypeName(tt.typ))
		})
	}
}

func Test_CorrelationData(t *testing.T) {
	order := newOrderEntity("o-1", "first")
	entity := domainevents.TrackedEntity{Entity: order, Keys: order.Keys()}

	data, err := domainevents.CorrelationData(entity)

	require.NoError(t, err)
	assert.Len(t, data, 2)
	assert.Equal(t, reflect.TypeFor[orderEntity]().PkgPath()+".orderEntity", data[domainevents.SourceTypeKey])
	assert.Equal(t, `{"ID":"o-1"}`, data[domainevents.SourceKeysKey])
}

func Test_AdditionalData_StoresCopies(t *testing.T) {
	var carrier domainevents.AdditionalData

	_, found := carrier.TryGetAdditionalData()
	assert.False(t, found)

	input := map[string]string{"a": "1"}
	carrier.SetAdditionalData(input)
	input["a"] = "changed"

	data, found := carrier.TryGetAdditionalData()
	require.True(t, found)
	assert.Equal(t, "1", data["a"])

	data["a"] = "changed again"
	again, _ := carrier.TryGetAdditionalData()
	assert.Equal(t, "1", again["a"])
}
