// Package testutil provides fixtures and fake runtime executables for tests.
//
// # Fixtures
//
// Settings and preferences documents are embedded using go:embed:
//
//	fixtures/settings_valid.toml
//	fixtures/settings_invalid.toml
//	fixtures/preferences_camel.json
//	fixtures/preferences_snake.json
//
// # Fake runtimes
//
// WriteFakeRuntime writes a /bin/sh script that answers --version, info and
// info --format=... the way docker or podman would:
//
//	dir := t.TempDir()
//	path := testutil.WriteFakeRuntime(t, dir, "podman", testutil.FakeRuntime{
//	    Version:  "podman version 4.8.0",
//	    Rootless: "true",
//	})
//
// The package deliberately has no dependency on the packages it helps test.
package testutil
