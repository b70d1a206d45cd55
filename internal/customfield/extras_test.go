package customfield

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlattenJSONLaysExtrasBesideNativeFields(t *testing.T) {
	base := struct {
		ID   string  `json:"id"`
		Name string  `json:"name"`
		Fee  float64 `json:"fee"`
	}{ID: "42", Name: "Burger", Fee: 9.5}

	out, err := FlattenJSON(base, map[string]any{
		"Spice Level": "hot",
		"Diet":        []string{"vegan"},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{
		"id": "42",
		"name": "Burger",
		"fee": 9.5,
		"Spice Level": "hot",
		"Diet": ["vegan"]
	}`, string(out))
}

func TestFlattenJSONWithoutExtrasIsPlainMarshal(t *testing.T) {
	base := struct {
		Name string `json:"name"`
	}{Name: "Patio"}

	out, err := FlattenJSON(base, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"Patio"}`, string(out))
}

func TestFlattenJSONNullValuesSurfaceAsNull(t *testing.T) {
	base := struct {
		Name string `json:"name"`
	}{Name: "Cola"}

	out, err := FlattenJSON(base, map[string]any{"Origin": nil})
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"Cola","Origin":null}`, string(out))
}
