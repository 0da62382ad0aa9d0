package env

import (
	"errors"
	"testing"

	"github.com/abdul-hamid-achik/tstit/packages/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	require.NoError(t, s.Set("CUSTOMER_ID", value.IntOf(42)))
	require.NoError(t, s.Set("NAME", value.StringOf("bob")))
	require.NoError(t, s.Set("ACTIVE", value.BoolOf(true)))
	return s
}

func TestStore_Set(t *testing.T) {
	s := NewStore()

	assert.NoError(t, s.Set("ID", value.IntOf(1)))
	assert.Error(t, s.Set("1BAD", value.IntOf(1)))
	assert.Error(t, s.Set("LIST", value.SequenceOf(value.IntOf(1))))

	v, ok := s.Get("ID")
	require.True(t, ok)
	assert.Equal(t, "1", v.Text())

	require.NoError(t, s.Set("ID", value.IntOf(2)))
	v, _ = s.Get("ID")
	assert.Equal(t, "2", v.Text(), "a later set replaces the binding")
}

func TestStore_Seed(t *testing.T) {
	s := NewStore()
	s.Seed(map[string]string{"TSTIT_URL": "http://x", "bad-name": "skip", "ProgramFiles(x86)": "skip"})

	assert.Equal(t, []string{"TSTIT_URL"}, s.Names())
	v, _ := s.Get("TSTIT_URL")
	assert.Equal(t, value.String, v.Kind())
}

func TestResolver_ResolveString(t *testing.T) {
	r := NewResolver(newTestStore(t))

	tests := []struct {
		name     string
		input    string
		wantKind value.Kind
		wantText string
	}{
		{"plain text untouched", "hello world", value.String, "hello world"},
		{"exact match keeps type", "$CUSTOMER_ID", value.Number, "42"},
		{"braced exact match keeps type", "${ACTIVE}", value.Bool, "true"},
		{"substring interpolates", "/v1/customer/$CUSTOMER_ID", value.String, "/v1/customer/42"},
		{"braces allow adjacency", "${NAME}_suffix", value.String, "bob_suffix"},
		{"multiple references", "$NAME-$CUSTOMER_ID", value.String, "bob-42"},
		{"escaped dollar", "costs $$5", value.String, "costs $5"},
		{"lone dollar is literal", "costs $5", value.String, "costs $5"},
		{"double dollar alone", "$$", value.String, "$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, got.Kind())
			assert.Equal(t, tt.wantText, got.Text())
		})
	}
}

func TestResolver_Interpolate(t *testing.T) {
	r := NewResolver(newTestStore(t))

	got, err := r.Interpolate("$CUSTOMER_ID")
	require.NoError(t, err)
	assert.Equal(t, "42", got)

	_, err = r.Interpolate("/v1/$MISSING")
	var undefined *UndefinedError
	require.ErrorAs(t, err, &undefined)
	assert.Equal(t, []string{"MISSING"}, undefined.Names)
}

func TestResolver_ResolveTree(t *testing.T) {
	r := NewResolver(newTestStore(t))

	in := value.MappingOf(
		value.Member{Key: "id", Value: value.StringOf("$CUSTOMER_ID")},
		value.Member{Key: "$NAME", Value: value.StringOf("key untouched")},
		value.Member{Key: "tags", Value: value.SequenceOf(value.StringOf("$NAME"), value.IntOf(7))},
		value.Member{Key: "nested", Value: value.MappingOf(
			value.Member{Key: "label", Value: value.StringOf("customer $NAME")},
		)},
	)

	got, err := r.Resolve(in)
	require.NoError(t, err)
	assert.Equal(t, `{"id":42,"$NAME":"key untouched","tags":["bob",7],"nested":{"label":"customer bob"}}`, got.Text())
	assert.Equal(t, `{"id":"$CUSTOMER_ID","$NAME":"key untouched","tags":["$NAME",7],"nested":{"label":"customer $NAME"}}`, in.Text(),
		"the input tree is not modified")
}

func TestResolver_UndefinedCollectsAll(t *testing.T) {
	r := NewResolver(newTestStore(t))

	in := value.SequenceOf(
		value.StringOf("$FIRST"),
		value.StringOf("x-${SECOND}-$FIRST"),
		value.StringOf("$NAME"),
	)

	_, err := r.Resolve(in)
	require.Error(t, err)

	var undefined *UndefinedError
	require.True(t, errors.As(err, &undefined))
	assert.Equal(t, []string{"FIRST", "SECOND"}, undefined.Names)
	assert.Equal(t, "undefined variables $FIRST, $SECOND", err.Error())
}

func TestHasPlaceholders(t *testing.T) {
	assert.True(t, HasPlaceholders("/v1/$ID"))
	assert.True(t, HasPlaceholders("${ID}"))
	assert.False(t, HasPlaceholders("$$"))
	assert.False(t, HasPlaceholders("$5 off"))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "CUSTOMER_ID", NormalizeName("$CUSTOMER_ID"))
	assert.Equal(t, "CUSTOMER_ID", NormalizeName(" CUSTOMER_ID "))
}
