package project

import (
	"context"
	"errors"
	"testing"

	"github.com/bazelbuild/bazel-gazelle/testtools"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/stackb/noir-stage/pkg/depresolve"
	"github.com/stackb/noir-stage/pkg/nargo"
	"github.com/stackb/noir-stage/pkg/status"
	"github.com/stackb/noir-stage/pkg/testutil"
	"github.com/stackb/noir-stage/pkg/vfs"
)

type fakeCompiler struct {
	dirs  []string
	files map[string]string
	err   error
}

func (c *fakeCompiler) Compile(ctx context.Context, dir string) (*nargo.Program, error) {
	c.dirs = append(c.dirs, dir)
	c.files = make(map[string]string)
	disk, err := vfs.NewDiskStore(dir)
	if err != nil {
		return nil, err
	}
	if err := disk.Walk(ctx, func(name string, data []byte) error {
		c.files[name] = string(data)
		return nil
	}); err != nil {
		return nil, err
	}
	if c.err != nil {
		return nil, c.err
	}
	return &nargo.Program{Dir: dir, Artifact: "target/main.json"}, nil
}

type eventRecorder struct {
	events []Event
	errs   []error
}

func (r *eventRecorder) listen(ev Event, err error) {
	r.events = append(r.events, ev)
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

func actions(rec *status.Recorder) []string {
	var got []string
	for _, u := range rec.Updates() {
		if u.ID == "compile" {
			got = append(got, u.Action)
		}
	}
	return got
}

func TestSetup(t *testing.T) {
	for name, tc := range map[string]struct {
		primary     map[string]string
		wantPrimary string
		wantStaging string
	}{
		"missing manifest gets the default": {
			primary:     map[string]string{"src/main.nr": "fn main() {}\n"},
			wantPrimary: DefaultManifest,
			wantStaging: DefaultManifest,
		},
		"existing manifest is copied": {
			primary:     map[string]string{ManifestFile: "[package]\nname = \"demo\"\n"},
			wantPrimary: "[package]\nname = \"demo\"\n",
			wantStaging: "[package]\nname = \"demo\"\n",
		},
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			primary := vfs.NewMemoryStoreFromMap(tc.primary)
			staging := vfs.NewMemoryStore()

			require.NoError(t, New(primary, staging).Setup(ctx))

			got, err := primary.ReadFile(ctx, ManifestFile)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.wantPrimary, string(got)); diff != "" {
				t.Errorf("primary (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(map[string]string{ManifestFile: tc.wantStaging}, staging.Files()); diff != "" {
				t.Errorf("staging (-want +got):\n%s", diff)
			}
		})
	}
}

func TestActivate(t *testing.T) {
	var rec eventRecorder
	staging := vfs.NewMemoryStore()
	p := New(vfs.NewMemoryStore(), staging, WithListener(rec.listen))

	require.NoError(t, p.Activate(context.Background()))

	if diff := cmp.Diff([]Event{EventActivated}, rec.events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if ok, _ := staging.Exists(context.Background(), ManifestFile); !ok {
		t.Error("activate should run setup")
	}
}

func TestParse(t *testing.T) {
	ctx := context.Background()
	primary := vfs.NewMemoryStoreFromMap(testutil.FileMap([]testtools.FileSpec{
		{Path: "src/main.nr", Content: "mod foo;\nfn main() {}\n"},
		{Path: "src/foo.nr", Content: "mod bar;\nfn foo() {}\n"},
		{Path: "src/bar.nr", Content: "fn bar() {}\n"},
	}))
	staging := vfs.NewMemoryStore()
	p := New(primary, staging, WithLogger(testutil.NewTestLogger(t)))

	trav, err := p.Parse(ctx, "src/main.nr", "")
	require.NoError(t, err)

	want := map[string]string{
		"src/foo.nr":     "mod bar;\nfn foo() {}\n",
		"src/foo/bar.nr": "fn bar() {}\n",
		"src/main.nr":    "mod foo;\nfn main() {}\n",
	}
	if diff := cmp.Diff(want, staging.Files()); diff != "" {
		t.Errorf("staging (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"src/main.nr", "src/foo.nr"}, trav.Files()); diff != "" {
		t.Errorf("visited files (-want +got):\n%s", diff)
	}
}

func TestParseMissingDependency(t *testing.T) {
	staging := vfs.NewMemoryStore()
	p := New(vfs.NewMemoryStore(), staging)

	_, err := p.Parse(context.Background(), "main.nr", "mod ghost;\n")
	if !errors.Is(err, depresolve.ErrDependencyNotFound) {
		t.Fatalf("want ErrDependencyNotFound, got %v", err)
	}
	if staging.Len() != 0 {
		t.Errorf("root must not be staged after a failed resolve: %v", staging.Files())
	}
}

func TestCompile(t *testing.T) {
	ctx := context.Background()
	primary := vfs.NewMemoryStoreFromMap(map[string]string{
		"src/main.nr": "mod foo;\n",
		"src/foo.nr":  "fn foo() {}\n",
	})
	staging := vfs.NewMemoryStore()
	compiler := &fakeCompiler{}
	var events eventRecorder
	var output status.Recorder

	p := New(primary, staging,
		WithCompiler(compiler),
		WithListener(events.listen),
		WithStatus(&output),
		WithLogger(testutil.NewTestLogger(t)),
	)
	t.Cleanup(func() { p.Close() })

	require.NoError(t, p.Setup(ctx))
	_, err := p.Parse(ctx, "src/main.nr", "")
	require.NoError(t, err)

	program, err := p.Compile(ctx, "src/main.nr")
	require.NoError(t, err)
	if program.Artifact != "target/main.json" {
		t.Errorf("unexpected program %+v", program)
	}

	wantFiles := map[string]string{
		ManifestFile:  DefaultManifest,
		"src/foo.nr":  "fn foo() {}\n",
		"src/main.nr": "mod foo;\n",
	}
	if diff := cmp.Diff(wantFiles, compiler.files); diff != "" {
		t.Errorf("compiler input (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Event{EventCompilingStart, EventCompilingDone}, events.events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"loading", "succeed"}, actions(&output)); diff != "" {
		t.Errorf("status (-want +got):\n%s", diff)
	}

	// the export directory is reused between compiles
	_, err = p.Compile(ctx, "src/main.nr")
	require.NoError(t, err)
	if len(compiler.dirs) != 2 || compiler.dirs[0] != compiler.dirs[1] {
		t.Errorf("want one reused export dir, got %v", compiler.dirs)
	}
}

func TestCompileError(t *testing.T) {
	boom := grpcstatus.Error(codes.Internal, "nargo compile exited with code 1")
	compiler := &fakeCompiler{err: boom}
	var events eventRecorder
	var output status.Recorder

	dir, _ := testutil.MustPrepareTestFiles(t, nil)
	staging, err := vfs.NewDiskStore(dir)
	require.NoError(t, err)

	p := New(vfs.NewMemoryStore(), staging,
		WithCompiler(compiler),
		WithListener(events.listen),
		WithStatus(&output),
	)

	_, err = p.Compile(context.Background(), "main.nr")
	if !errors.Is(err, boom) {
		t.Fatalf("want compiler error, got %v", err)
	}
	if diff := cmp.Diff([]string{dir}, compiler.dirs); diff != "" {
		t.Errorf("rooted staging should be compiled in place (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Event{EventCompilingStart, EventCompilingErrored}, events.events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if len(events.errs) != 1 || !errors.Is(events.errs[0], boom) {
		t.Errorf("listener should receive the error, got %v", events.errs)
	}
	if diff := cmp.Diff([]string{"loading", "error"}, actions(&output)); diff != "" {
		t.Errorf("status (-want +got):\n%s", diff)
	}
}

func TestCompileWithoutCompiler(t *testing.T) {
	_, err := New(vfs.NewMemoryStore(), vfs.NewMemoryStore()).Compile(context.Background(), "main.nr")
	if grpcstatus.Code(err) != codes.FailedPrecondition {
		t.Errorf("want FailedPrecondition, got %v", err)
	}
}
