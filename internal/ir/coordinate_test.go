package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinate(t *testing.T) {
	c, err := ParseCoordinate("org.junit.jupiter:junit-jupiter:5.10.0")
	require.NoError(t, err)
	assert.Equal(t, Coordinate{Group: "org.junit.jupiter", Name: "junit-jupiter", Version: "5.10.0"}, c)

	c, err = ParseCoordinate("com.example:native:1.2:linux-x86_64")
	require.NoError(t, err)
	assert.Equal(t, "linux-x86_64", c.Classifier)
}

func TestParseCoordinateRoundTrip(t *testing.T) {
	for _, text := range []string{
		"g:n:v",
		"org.junit:junit-bom:5.10.0",
		"com.example:lib:1.0-SNAPSHOT:sources",
	} {
		c, err := ParseCoordinate(text)
		require.NoError(t, err, text)
		assert.Equal(t, text, c.String())
	}
}

func TestParseCoordinateMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"one part", "junit"},
		{"two parts", "org.junit:junit"},
		{"empty group", ":junit:5.10.0"},
		{"empty version", "org.junit:junit:"},
		{"five parts", "a:b:c:d:e"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCoordinate(tt.text)
			require.Error(t, err)
			assert.True(t, IsMalformedCoordinate(err))

			var e *Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.text, e.Subject)
		})
	}
}

func TestParseManagedCoordinate(t *testing.T) {
	c, err := ParseManagedCoordinate("org.junit.jupiter:junit-jupiter")
	require.NoError(t, err)
	assert.True(t, c.Versionless())
	assert.Equal(t, "org.junit.jupiter:junit-jupiter", c.String())

	_, err = ParseManagedCoordinate("junit")
	assert.True(t, IsMalformedCoordinate(err))
}

func TestCoordinateIsMapKey(t *testing.T) {
	seen := map[Coordinate]int{}
	seen[MustParseCoordinate("g:n:1")]++
	seen[MustParseCoordinate("g:n:1")]++
	seen[MustParseCoordinate("g:n:2")]++

	assert.Len(t, seen, 2)
	assert.Equal(t, 2, seen[Coordinate{Group: "g", Name: "n", Version: "1"}])
}

func TestCoordinateModule(t *testing.T) {
	a := MustParseCoordinate("g:n:1")
	b := MustParseCoordinate("g:n:2:tests")
	assert.Equal(t, a.Module(), b.Module())
	assert.Equal(t, "g:n", a.Module().String())
	assert.Equal(t, "g:n:3", a.WithVersion("3").String())
}

func TestNormalizeScope(t *testing.T) {
	assert.Equal(t, ScopeCompile, NormalizeScope("implementation"))
	assert.Equal(t, ScopeTest, NormalizeScope("testImplementation"))
	assert.Equal(t, ScopeRuntimeOnly, NormalizeScope(ScopeRuntimeOnly))

	assert.NoError(t, ValidateScope("testRuntimeOnly"))
	assert.Error(t, ValidateScope(""))
	assert.Error(t, ValidateScope("1bad"))
	assert.Error(t, ValidateScope("has space"))
}

func TestParseRepository(t *testing.T) {
	r, err := ParseRepository("mavenCentral")
	require.NoError(t, err)
	assert.Equal(t, MavenCentral(), r)

	r, err = ParseRepository("https://repo.example.com/maven")
	require.NoError(t, err)
	assert.Equal(t, "https://repo.example.com/maven", r.URL)

	r, err = ParseRepository("internal")
	require.NoError(t, err)
	assert.Empty(t, r.URL)

	_, err = ParseRepository(" ")
	assert.Error(t, err)
}
