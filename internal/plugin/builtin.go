package plugin

import (
	"github.com/roach88/buildcfg/internal/ir"
)

// Built-in plugin ids.
const (
	Base          = "base"
	Java          = "java"
	JavaLibrary   = "java-library"
	Application   = "application"
	JUnitPlatform = "junit-platform"
)

// Builtins returns fresh copies of the built-in plugin definitions.
func Builtins() []ir.PluginDefinition {
	return []ir.PluginDefinition{
		{
			ID:          Base,
			Description: "lifecycle tasks shared by every project",
			Tasks: []ir.TaskContribution{
				{Name: "clean", Type: "Delete", Properties: ir.Map{"delete": ir.Strings("build")}},
				{Name: "assemble", Type: "Lifecycle", Properties: ir.Map{}},
				{Name: "check", Type: "Lifecycle", Properties: ir.Map{}},
				{Name: "build", Type: "Lifecycle", Properties: ir.Map{"dependsOn": ir.Strings("assemble", "check")}},
			},
		},
		{
			ID:          Java,
			Description: "compiles, tests and packages Java sources",
			Applies:     []string{Base},
			Tasks: []ir.TaskContribution{
				{Name: "compileJava", Type: "JavaCompile", Properties: javaCompile("src/main/java", "build/classes/java/main")},
				{Name: "processResources", Type: "ProcessResources", Properties: ir.Map{
					"source":      ir.Strings("src/main/resources"),
					"destination": ir.String("build/resources/main"),
				}},
				{Name: "classes", Type: "Lifecycle", Properties: ir.Map{"dependsOn": ir.Strings("compileJava", "processResources")}},
				{Name: "jar", Type: "Jar", Properties: ir.Map{
					"archiveExtension": ir.String("jar"),
					"destination":      ir.String("build/libs"),
				}},
				{Name: "javadoc", Type: "Javadoc", Properties: ir.Map{"destination": ir.String("build/docs/javadoc")}},
				{Name: "compileTestJava", Type: "JavaCompile", Properties: javaCompile("src/test/java", "build/classes/java/test")},
				{Name: "processTestResources", Type: "ProcessResources", Properties: ir.Map{
					"source":      ir.Strings("src/test/resources"),
					"destination": ir.String("build/resources/test"),
				}},
				{Name: "testClasses", Type: "Lifecycle", Properties: ir.Map{"dependsOn": ir.Strings("compileTestJava", "processTestResources")}},
				{Name: "test", Type: "Test", Properties: ir.Map{
					"testFramework": ir.String("junit4"),
					"jvmArgs":       ir.List{},
					"reports":       ir.String("build/reports/tests/test"),
				}},
			},
			Scopes: []ir.ScopeBinding{
				{Scope: ir.ScopeCompile, Consumers: []string{"compileJava", "compileTestJava", "test", "javadoc"}},
				{Scope: ir.ScopeCompileOnly, Consumers: []string{"compileJava"}},
				{Scope: ir.ScopeRuntimeOnly, Consumers: []string{"test"}},
				{Scope: ir.ScopeTest, Consumers: []string{"compileTestJava", "test"}},
				{Scope: ir.ScopeTestCompileOnly, Consumers: []string{"compileTestJava"}},
				{Scope: ir.ScopeTestRuntimeOnly, Consumers: []string{"test"}},
			},
		},
		{
			ID:          JavaLibrary,
			Description: "java plus an api scope exported to consumers",
			Applies:     []string{Java},
			Tasks: []ir.TaskContribution{
				{Name: "jar", Type: "Jar", Properties: ir.Map{"manifest": ir.Map{"library": ir.Bool(true)}}},
			},
			Scopes: []ir.ScopeBinding{
				{Scope: ir.ScopeAPI, Consumers: []string{"compileJava", "compileTestJava", "test", "javadoc"}},
			},
		},
		{
			ID:          Application,
			Description: "java plus a runnable main class",
			Applies:     []string{Java},
			Tasks: []ir.TaskContribution{
				{Name: "run", Type: "JavaExec", Properties: ir.Map{
					"mainClass": ir.String(""),
					"args":      ir.List{},
				}},
				{Name: "startScripts", Type: "CreateStartScripts", Properties: ir.Map{"destination": ir.String("build/scripts")}},
				{Name: "distZip", Type: "Zip", Properties: ir.Map{"destination": ir.String("build/distributions")}},
			},
			Scopes: []ir.ScopeBinding{
				{Scope: ir.ScopeRuntimeOnly, Consumers: []string{"run"}},
			},
		},
		{
			ID:          JUnitPlatform,
			Description: "runs the test task on the JUnit Platform",
			Applies:     []string{Java},
			Tasks: []ir.TaskContribution{
				{Name: "test", Type: "Test", Properties: ir.Map{"testFramework": ir.String("junit-platform")}},
			},
		},
	}
}

func javaCompile(source, destination string) ir.Map {
	return ir.Map{
		"compilerArgs": ir.List{},
		"source":       ir.Strings(source),
		"destination":  ir.String(destination),
		"encoding":     ir.String("UTF-8"),
	}
}
