package ir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclarationCheck(t *testing.T) {
	noop := func(TaskInfo, Map) error { return nil }

	tests := []struct {
		name string
		decl Declaration
		code ErrorCode
	}{
		{"plugin ok", ApplyPlugin("java"), ""},
		{"plugin empty", ApplyPlugin(""), ErrCodeInvalidDeclaration},
		{"identity ok", SetIdentity(Ptr("g"), nil), ""},
		{"identity empty", SetIdentity(nil, nil), ErrCodeInvalidDeclaration},
		{"repository ok", AddRepository(MavenCentral()), ""},
		{"repository empty", AddRepository(Repository{}), ErrCodeInvalidDeclaration},
		{"dependency ok", AddDependency(MustParseCoordinate("g:n:1"), ScopeTest), ""},
		{"dependency no scope", AddDependency(MustParseCoordinate("g:n:1"), ""), ErrCodeInvalidDeclaration},
		{"dependency versionless", AddDependency(Coordinate{Group: "g", Name: "n"}, ScopeTest), ErrCodeMalformedCoordinate},
		{"managed ok", AddManagedDependency(Coordinate{Group: "g", Name: "n"}, ScopeTest), ""},
		{"platform ok", AddPlatform(MustParseCoordinate("g:bom:1"), ScopeTest), ""},
		{"mutation ok", MutateTasks(TaskFilter{Type: "JavaCompile"}, EffectSpec{Op: OpSet, Property: "p", Value: Int(1)}), ""},
		{"mutation func ok", MutateTasksFunc(TaskFilter{Name: "test"}, "f", noop), ""},
		{"mutation empty", MutateTasks(TaskFilter{}), ErrCodeInvalidDeclaration},
		{"unknown kind", Declaration{Kind: "explode"}, ErrCodeInvalidDeclaration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decl.Check()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestTaskFilterMatches(t *testing.T) {
	assert.True(t, TaskFilter{}.Matches("jar", "Jar"))
	assert.True(t, TaskFilter{Type: "JavaCompile"}.Matches("compileJava", "JavaCompile"))
	assert.False(t, TaskFilter{Type: "JavaCompile"}.Matches("jar", "Jar"))
	assert.True(t, TaskFilter{Name: "compileJava", Type: "JavaCompile"}.Matches("compileJava", "JavaCompile"))
	assert.False(t, TaskFilter{Name: "compileJava", Type: "JavaCompile"}.Matches("compileTestJava", "JavaCompile"))
	assert.Equal(t, "name=test,type=Test", TaskFilter{Name: "test", Type: "Test"}.String())
	assert.Equal(t, "*", TaskFilter{}.String())
}

func TestScriptPluginIDs(t *testing.T) {
	s := NewScript("x", ApplyPlugin("java"), AddRepository(MavenCentral()), ApplyPlugin("java"))
	assert.Equal(t, []string{"java", "java"}, s.PluginIDs())
}

func TestErrorFormatting(t *testing.T) {
	err := NewUnknownPlugin("kotlin").WithOrigin("build.cue:3:2")
	assert.Equal(t, `build.cue:3:2: UNKNOWN_PLUGIN: plugin is not registered (kotlin)`, err.Error())

	cause := errors.New("connection refused")
	wrapped := fmt.Errorf("resolve: %w", NewResolutionFailure("g:n:1", cause))
	assert.True(t, IsResolutionFailure(wrapped))
	assert.ErrorIs(t, wrapped, cause)
}

func TestLocateKeepsExistingOrigin(t *testing.T) {
	err := Locate(NewDuplicatePlugin("java").WithOrigin("a:1:1"), "b:2:2")
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "a:1:1", e.Origin)

	plain := errors.New("plain")
	assert.Same(t, plain, Locate(plain, "b:2:2"))
}
