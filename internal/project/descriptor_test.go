package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buildcfg/internal/ir"
)

func coord(text string) ir.Coordinate {
	return ir.MustParseCoordinate(text)
}

func TestIdentityUnsetByDefault(t *testing.T) {
	d := New()
	id := d.Identity()
	assert.Nil(t, id.Group)
	assert.Nil(t, id.Version)
	assert.Equal(t, "unspecified", id.GroupOr("unspecified"))
}

func TestSetIdentityLastWriteWins(t *testing.T) {
	d := New()
	require.NoError(t, d.SetIdentity(ir.Ptr("com.example"), ir.Ptr("1.0")))
	require.NoError(t, d.SetIdentity(nil, ir.Ptr("2.0")))

	id := d.Identity()
	require.NotNil(t, id.Group)
	assert.Equal(t, "com.example", *id.Group)
	assert.Equal(t, "2.0", *id.Version)
}

func TestSetIdentityRejectPolicy(t *testing.T) {
	d := New(WithIdentityPolicy(IdentityReject))
	require.NoError(t, d.SetIdentity(ir.Ptr("com.example"), nil))
	require.NoError(t, d.SetIdentity(ir.Ptr("com.example"), ir.Ptr("1.0")), "same value is not a reassignment")

	err := d.SetIdentity(nil, ir.Ptr("2.0"))
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeIdentityReassigned, ir.CodeOf(err))
	assert.Equal(t, "1.0", *d.Identity().Version, "failed write leaves the field untouched")
}

func TestIdentityAccessorReturnsCopy(t *testing.T) {
	d := New()
	require.NoError(t, d.SetIdentity(ir.Ptr("g"), nil))
	id := d.Identity()
	*id.Group = "changed"
	assert.Equal(t, "g", *d.Identity().Group)
}

func TestRepositoriesKeepDuplicatesInOrder(t *testing.T) {
	d := New()
	local := ir.Repository{Name: "internal", URL: "https://repo.internal/"}
	require.NoError(t, d.AddRepository(ir.MavenCentral()))
	require.NoError(t, d.AddRepository(local))
	require.NoError(t, d.AddRepository(ir.MavenCentral()))

	assert.Equal(t, []ir.Repository{ir.MavenCentral(), local, ir.MavenCentral()}, d.Repositories())
}

func TestAddDependencyLastWriteWins(t *testing.T) {
	d := New()
	require.NoError(t, d.AddDependency(coord("org.junit:junit-jupiter:5.9.0"), ir.ScopeTest))
	require.NoError(t, d.AddDependency(coord("org.assertj:assertj-core:3.24.2"), ir.ScopeTest))
	require.NoError(t, d.AddDependency(coord("org.junit:junit-jupiter:5.10.0"), ir.ScopeTest))

	assert.Equal(t, []ir.Coordinate{
		coord("org.junit:junit-jupiter:5.10.0"),
		coord("org.assertj:assertj-core:3.24.2"),
	}, d.Coordinates(ir.ScopeTest), "entry keeps the position of its first declaration")
}

func TestAddDependencyScopesAreIndependent(t *testing.T) {
	d := New()
	c := coord("com.google.guava:guava:33.0.0-jre")
	require.NoError(t, d.AddDependency(c, ir.ScopeCompile))
	require.NoError(t, d.AddDependency(c, ir.ScopeTest))

	assert.Equal(t, []ir.Coordinate{c}, d.Coordinates(ir.ScopeCompile))
	assert.Equal(t, []ir.Coordinate{c}, d.Coordinates(ir.ScopeTest))
	assert.Equal(t, []ir.Scope{ir.ScopeCompile, ir.ScopeTest}, d.Scopes())
}

func TestAddDependencyNormalizesAliases(t *testing.T) {
	d := New()
	require.NoError(t, d.AddDependency(coord("g:a:1"), "testImplementation"))
	require.NoError(t, d.AddDependency(coord("g:a:2"), ir.ScopeTest))

	assert.Equal(t, []ir.Coordinate{coord("g:a:2")}, d.Coordinates("testImplementation"))
}

func TestAddDependencyClassifierReplaces(t *testing.T) {
	d := New()
	require.NoError(t, d.AddDependency(coord("g:a:1"), ir.ScopeCompile))
	require.NoError(t, d.AddDependency(coord("g:a:1:sources"), ir.ScopeCompile))

	assert.Equal(t, []ir.Coordinate{coord("g:a:1:sources")}, d.Coordinates(ir.ScopeCompile))
}

func TestAddDependencyRequiresVersion(t *testing.T) {
	d := New()
	err := d.AddDependency(ir.Coordinate{Group: "g", Name: "a"}, ir.ScopeTest)
	assert.True(t, ir.IsMalformedCoordinate(err))
}

func TestDependencyPolicies(t *testing.T) {
	tests := []struct {
		name   string
		policy DependencyPolicy
		first  string
		second string
		want   string
		code   ir.ErrorCode
	}{
		{"last write wins downgrade", DependencyLastWriteWins, "g:a:2.0.0", "g:a:1.0.0", "g:a:1.0.0", ""},
		{"highest keeps higher", DependencyHighestVersion, "g:a:2.0.0", "g:a:1.5.0", "g:a:2.0.0", ""},
		{"highest takes higher", DependencyHighestVersion, "g:a:1.5.0", "g:a:2.0.0", "g:a:2.0.0", ""},
		{"highest prerelease", DependencyHighestVersion, "g:a:5.10.0", "g:a:5.10.0-M1", "g:a:5.10.0", ""},
		{"highest unparsable falls back", DependencyHighestVersion, "g:a:2.0", "g:a:RELEASE", "g:a:RELEASE", ""},
		{"fail on conflict", DependencyFailOnConflict, "g:a:1.0.0", "g:a:2.0.0", "g:a:1.0.0", ir.ErrCodeVersionConflict},
		{"fail on conflict same", DependencyFailOnConflict, "g:a:1.0.0", "g:a:1.0.0", "g:a:1.0.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(WithDependencyPolicy(tt.policy))
			require.NoError(t, d.AddDependency(coord(tt.first), ir.ScopeCompile))

			err := d.AddDependency(coord(tt.second), ir.ScopeCompile)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, ir.CodeOf(err))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, []ir.Coordinate{coord(tt.want)}, d.Coordinates(ir.ScopeCompile))
		})
	}
}

func TestManagedDependencyAndPlatform(t *testing.T) {
	d := New()
	require.NoError(t, d.AddPlatform(coord("org.junit:junit-bom:5.10.0"), "testImplementation"))
	require.NoError(t, d.AddManagedDependency(ir.Coordinate{Group: "org.junit.jupiter", Name: "junit-jupiter"}, "testImplementation"))

	deps := d.Dependencies(ir.ScopeTest)
	require.Len(t, deps, 1)
	assert.True(t, deps[0].Managed)
	assert.Equal(t, "org.junit.jupiter:junit-jupiter", deps[0].Coordinate.String())
	assert.Equal(t, []ir.Coordinate{coord("org.junit:junit-bom:5.10.0")}, d.Platforms(ir.ScopeTest))

	err := d.AddPlatform(ir.Coordinate{Group: "g", Name: "bom"}, ir.ScopeTest)
	assert.True(t, ir.IsMalformedCoordinate(err))
}

func TestManagedDependencyRejectsClassifier(t *testing.T) {
	d := New()
	err := d.AddManagedDependency(ir.Coordinate{Group: "org.lwjgl", Name: "lwjgl", Classifier: "natives-linux"}, ir.ScopeRuntimeOnly)
	assert.True(t, ir.IsMalformedCoordinate(err))
	assert.Contains(t, err.Error(), "classifier")
	assert.Empty(t, d.Dependencies(ir.ScopeRuntimeOnly))

	require.NoError(t, d.AddManagedDependency(coord("org.lwjgl:lwjgl:3.3.3"), ir.ScopeRuntimeOnly))
	deps := d.Dependencies(ir.ScopeRuntimeOnly)
	require.Len(t, deps, 1)
	assert.Equal(t, "org.lwjgl:lwjgl", deps[0].Coordinate.String())
}

func TestAddTaskMutationAssignsSequence(t *testing.T) {
	d := New()
	require.NoError(t, d.AddTaskMutation(Mutation{Description: "first"}))
	require.NoError(t, d.AddTaskMutation(Mutation{Description: "second"}))

	muts := d.Mutations()
	require.Len(t, muts, 2)
	assert.Equal(t, 0, muts[0].Seq)
	assert.Equal(t, 1, muts[1].Seq)
	assert.Equal(t, "second", muts[1].Description)
}

func TestRecordPluginIdempotent(t *testing.T) {
	d := New()
	app := ir.PluginApplication{ID: "java", Scopes: []ir.ScopeBinding{{Scope: ir.ScopeCompile, Consumers: []string{"compileJava"}}}}

	added, err := d.RecordPlugin(app)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = d.RecordPlugin(app)
	require.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, []string{"java"}, d.PluginIDs())
	assert.True(t, d.IsApplied("java"))
	assert.True(t, d.BindsScope("implementation"))
	assert.False(t, d.BindsScope(ir.ScopeTest))
}

func TestScopeBindingsUnion(t *testing.T) {
	d := New()
	_, err := d.RecordPlugin(ir.PluginApplication{ID: "a", Scopes: []ir.ScopeBinding{
		{Scope: ir.ScopeCompile, Consumers: []string{"compileJava"}},
		{Scope: ir.ScopeTest, Consumers: []string{"test"}},
	}})
	require.NoError(t, err)
	_, err = d.RecordPlugin(ir.PluginApplication{ID: "b", Scopes: []ir.ScopeBinding{
		{Scope: "implementation", Consumers: []string{"compileJava", "javadoc"}},
	}})
	require.NoError(t, err)

	assert.Equal(t, []ir.ScopeBinding{
		{Scope: ir.ScopeCompile, Consumers: []string{"compileJava", "javadoc"}},
		{Scope: ir.ScopeTest, Consumers: []string{"test"}},
	}, d.ScopeBindings())
}

func TestFinalizeRejectsEveryMutator(t *testing.T) {
	d := New()
	d.Finalize()
	d.Finalize()

	calls := map[string]func() error{
		"setIdentity":   func() error { return d.SetIdentity(ir.Ptr("g"), nil) },
		"addRepository": func() error { return d.AddRepository(ir.MavenCentral()) },
		"addDependency": func() error { return d.AddDependency(coord("g:a:1"), ir.ScopeTest) },
		"addPlatform":   func() error { return d.AddPlatform(coord("g:bom:1"), ir.ScopeTest) },
		"addTaskMutation": func() error {
			return d.AddTaskMutation(Mutation{})
		},
		"applyPlugin": func() error {
			_, err := d.RecordPlugin(ir.PluginApplication{ID: "java"})
			return err
		},
	}

	for op, call := range calls {
		t.Run(op, func(t *testing.T) {
			err := call()
			require.Error(t, err)
			assert.True(t, ir.IsDescriptorFinalized(err))

			var e *ir.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, op, e.Subject)
		})
	}

	assert.Empty(t, d.Repositories())
	assert.Empty(t, d.Plugins())
}

func TestSnapshot(t *testing.T) {
	d := New()
	require.NoError(t, d.SetIdentity(ir.Ptr("com.ivankatalenic"), ir.Ptr("1.0-SNAPSHOT")))
	require.NoError(t, d.AddRepository(ir.MavenCentral()))
	require.NoError(t, d.AddDependency(coord("org.junit.jupiter:junit-jupiter:5.10.0"), ir.ScopeTest))

	snap := d.Snapshot()
	assert.Equal(t, "1.0-SNAPSHOT", *snap.Identity.Version)
	require.Len(t, snap.Scopes, 1)
	assert.Equal(t, ir.ScopeTest, snap.Scopes[0].Scope)
	assert.Empty(t, snap.Tasks)

	_, err := ir.Fingerprint(snap)
	require.NoError(t, err)
}

func TestParsePolicies(t *testing.T) {
	p, err := ParseDependencyPolicy("Highest")
	require.NoError(t, err)
	assert.Equal(t, DependencyHighestVersion, p)

	p, err = ParseDependencyPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DependencyLastWriteWins, p)

	_, err = ParseDependencyPolicy("random")
	assert.Error(t, err)

	ip, err := ParseIdentityPolicy("reject")
	require.NoError(t, err)
	assert.Equal(t, IdentityReject, ip)

	_, err = ParseIdentityPolicy("merge")
	assert.Error(t, err)
}
