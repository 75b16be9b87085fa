package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{
		"url":        {Types: []ValueType{TypeString}, Required: true},
		"method":     {Types: []ValueType{TypeString}},
		"timeout":    {Types: []ValueType{TypeInt, TypeFloat}},
		"verify_ssl": {Types: []ValueType{TypeBool}},
		"data":       {Types: []ValueType{TypeMap}},
		"tags":       {Types: []ValueType{TypeList}},
		"anything":   {Types: []ValueType{TypeAny}},
		"untyped":    {Required: true},
	}
}

func TestSchema_MissingRequired(t *testing.T) {
	s := testSchema()

	missing := s.MissingRequired(map[string]any{"method": "GET"})
	assert.Equal(t, []string{"untyped", "url"}, missing)

	missing = s.MissingRequired(map[string]any{"url": "http://x", "untyped": 1})
	assert.Empty(t, missing)
}

func TestSchema_CheckRequired(t *testing.T) {
	s := testSchema()

	err := s.CheckRequired(map[string]any{"url": "http://x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required parameter "untyped" missing`)

	assert.NoError(t, s.CheckRequired(map[string]any{"url": "http://x", "untyped": true}))
}

func TestSchema_CheckField(t *testing.T) {
	s := testSchema()

	assert.NoError(t, s.CheckField("url", "http://x"))
	assert.NoError(t, s.CheckField("verify_ssl", true))
	assert.NoError(t, s.CheckField("data", map[string]any{"k": "v"}))
	assert.NoError(t, s.CheckField("tags", []any{"a"}))
	assert.NoError(t, s.CheckField("anything", struct{}{}))

	// Undeclared fields and untyped declarations are not constrained.
	assert.NoError(t, s.CheckField("extra", 42))
	assert.NoError(t, s.CheckField("untyped", 42))
}

func TestSchema_CheckField_Mismatch(t *testing.T) {
	s := testSchema()

	err := s.CheckField("url", 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parameter "url"`)
	assert.Contains(t, err.Error(), "declared type string")

	err = s.CheckField("verify_ssl", "yes")
	require.Error(t, err)
}

func TestSchema_CheckField_TypeTuples(t *testing.T) {
	s := testSchema()

	// timeout declares int|float; both YAML shapes pass.
	assert.NoError(t, s.CheckField("timeout", 30))
	assert.NoError(t, s.CheckField("timeout", 2.5))
	err := s.CheckField("timeout", "30")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "int|float")
}

func TestSchema_IntShapes(t *testing.T) {
	s := Schema{"n": {Types: []ValueType{TypeInt}}}

	assert.NoError(t, s.CheckField("n", int(1)))
	assert.NoError(t, s.CheckField("n", int32(1)))
	assert.NoError(t, s.CheckField("n", int64(1)))
	assert.Error(t, s.CheckField("n", 1.5))
}
