package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoforge/internal/apperr"
)

func TestDetectFramework(t *testing.T) {
	cases := []struct {
		name     string
		language string
		seed     func(dir string)
		want     Framework
		wantErr  bool
	}{
		{
			name:     "rust with Cargo.toml",
			language: "rust",
			seed:     func(dir string) { touch(t, filepath.Join(dir, "Cargo.toml")) },
			want:     FrameworkCargo,
		},
		{
			name:     "rust missing manifest is undetected",
			language: "rust",
			seed:     func(string) {},
			wantErr:  true,
		},
		{
			name:     "go with go.mod",
			language: "go",
			seed:     func(dir string) { touch(t, filepath.Join(dir, "go.mod")) },
			want:     FrameworkGoTest,
		},
		{
			name:     "python defaults to pytest",
			language: "py",
			seed:     func(string) {},
			want:     FrameworkPytest,
		},
		{
			name:     "js with jest in package.json",
			language: "js",
			seed: func(dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"devDependencies":{"jest":"^29"}}`), 0644))
			},
			want: FrameworkJest,
		},
		{
			name:     "js with vitest in package.json",
			language: "ts",
			seed: func(dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"devDependencies":{"vitest":"^1"}}`), 0644))
			},
			want: FrameworkVitest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			tc.seed(dir)

			fw, err := DetectFramework(dir, tc.language)
			if tc.wantErr {
				require.Error(t, err)
				var fe *apperr.FrameworkUndetectedError
				assert.ErrorAs(t, err, &fe)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, fw)
		})
	}
}

func TestRunTestsCapturesNonZeroExitWithoutInterpretation(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "go.mod"))
	installFakeBinary(t, "go", "#!/bin/sh\necho fake-stdout\necho fake-stderr 1>&2\nexit 3\n")

	out, err := RunTests(context.Background(), dir, "go", false)
	require.NoError(t, err)
	assert.Equal(t, FrameworkGoTest, out.Framework)
	assert.Equal(t, 3, out.ExitCode)
	assert.Contains(t, out.Stdout, "fake-stdout")
	assert.Contains(t, out.Stderr, "fake-stderr")
}

func TestRunTestsUndetectedFrameworkIsFatal(t *testing.T) {
	dir := t.TempDir()
	_, err := RunTests(context.Background(), dir, "rust", false)
	require.Error(t, err)
	var fe *apperr.FrameworkUndetectedError
	assert.ErrorAs(t, err, &fe)
}

func installFakeBinary(t *testing.T, name, script string) {
	t.Helper()
	binDir := t.TempDir()
	path := filepath.Join(binDir, name)
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte{}, 0644))
}
