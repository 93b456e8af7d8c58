// SPDX-License-Identifier: MPL-2.0

package indexer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/invowk/repoindex/internal/testutil"
	"github.com/invowk/repoindex/pkg/capability"
	"github.com/invowk/repoindex/pkg/filter"
	"github.com/invowk/repoindex/pkg/resource"
)

var errBroken = errors.New("broken analyzer")

type faultRecorder struct {
	mu     sync.Mutex
	faults []*ExtensionFault
}

func (f *faultRecorder) ObserveFault(_ context.Context, fault *ExtensionFault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, fault)
}

func (f *faultRecorder) all() []*ExtensionFault {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*ExtensionFault(nil), f.faults...)
}

func mustStatic(t *testing.T, name, namespace string) *StaticAnalyzer {
	t.Helper()
	a, err := NewStaticAnalyzer(name, namespace, map[string]string{"source": name})
	if err != nil {
		t.Fatalf("NewStaticAnalyzer() unexpected error: %v", err)
	}
	return a
}

func bundleResource(t *testing.T, location, bsn string) resource.Resource {
	t.Helper()
	return resource.NewMemory(location, testutil.BuildJar(t, testutil.BundleHeaders(bsn, "1.0.0", nil), nil))
}

func TestRegistry_DefaultAnalyzer(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}

	got, err := r.Dispatch(context.Background(), bundleResource(t, "foo.jar", "com.example.foo"), GenerationContext{})
	if err != nil {
		t.Fatalf("Dispatch() unexpected error: %v", err)
	}
	if len(got.Capabilities) != 4 || got.Capabilities[0].Namespace() != capability.NamespaceIdentity {
		t.Errorf("Dispatch() capabilities = %v, want identity, content, bundle and host", got.Capabilities)
	}

	got, err = r.Dispatch(context.Background(), bundleResource(t, "foo.zip", "com.example.foo"), GenerationContext{})
	if err != nil {
		t.Fatalf("Dispatch() unexpected error: %v", err)
	}
	if len(got.Capabilities) != 0 || len(got.Requirements) != 0 {
		t.Errorf("Dispatch() on a non-.jar resource = %+v, want empty", got)
	}
}

func TestRegistry_DefaultAnalyzerFailureIsHard(t *testing.T) {
	t.Parallel()

	recorder := &faultRecorder{}
	r := NewRegistry(WithFaultObserver(recorder))
	r.Register(mustStatic(t, "static", "com.example.tag"), nil)

	res := resource.NewMemory("plain.jar", testutil.BuildJar(t, nil, nil))
	if _, err := r.Dispatch(context.Background(), res, GenerationContext{}); !errors.Is(err, ErrNotABundle) {
		t.Fatalf("Dispatch() error = %v, want ErrNotABundle", err)
	}
	if len(recorder.all()) != 0 {
		t.Errorf("default analyzer failure reported as a fault: %v", recorder.all())
	}
}

func TestRegistry_RegistrationOrderAndPredicates(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	first := mustStatic(t, "first", "com.example.first")
	second := mustStatic(t, "second", "com.example.second")
	scoped := mustStatic(t, "scoped", "com.example.scoped")
	r.Register(first, nil)
	r.Register(second, filter.MustParse("(name=*.jar)"))
	r.Register(scoped, filter.MustParse("(Bundle-SymbolicName=org.other.*)"))

	got, err := r.Dispatch(context.Background(), bundleResource(t, "foo.jar", "com.example.foo"), GenerationContext{})
	if err != nil {
		t.Fatalf("Dispatch() unexpected error: %v", err)
	}
	var extra []string
	for _, c := range got.Capabilities[4:] {
		extra = append(extra, c.Namespace())
	}
	want := []string{"com.example.first", "com.example.second"}
	if strings.Join(extra, ",") != strings.Join(want, ",") {
		t.Errorf("extension capabilities = %v, want %v", extra, want)
	}

	got, err = r.Dispatch(context.Background(), bundleResource(t, "other.jar", "org.other.thing"), GenerationContext{})
	if err != nil {
		t.Fatalf("Dispatch() unexpected error: %v", err)
	}
	if last := got.Capabilities[len(got.Capabilities)-1]; last.Namespace() != "com.example.scoped" {
		t.Errorf("last capability = %s, want com.example.scoped", last.Namespace())
	}
}

func TestRegistry_Unregister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a := mustStatic(t, "a", "com.example.a")
	predicate := filter.MustParse("(name=*.jar)")
	r.Register(a, predicate)

	if r.Unregister(a, filter.MustParse("(name=*.zip)")) {
		t.Error("Unregister() with a different predicate removed the analyzer")
	}
	if r.Unregister(mustStatic(t, "a", "com.example.a"), predicate) {
		t.Error("Unregister() with a different analyzer value removed the analyzer")
	}
	if !r.Unregister(a, filter.MustParse("(name=*.jar)")) {
		t.Error("Unregister() with the registered analyzer and an equal predicate = false")
	}
	if r.Unregister(a, predicate) {
		t.Error("Unregister() removed the same registration twice")
	}
	if r.Unregister(NewBundleAnalyzer(), filter.MustParse(DefaultPredicate)) {
		t.Error("Unregister() removed the default analyzer")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	fn := AnalyzerFunc(func(context.Context, resource.Resource, GenerationContext, *Result) error { return nil })
	r.Register(fn, nil)
	if r.Unregister(fn, nil) {
		t.Error("Unregister() matched a non-comparable AnalyzerFunc")
	}
	ptr := &fn
	r.Register(ptr, nil)
	if !r.Unregister(ptr, nil) {
		t.Error("Unregister() did not match a registered *AnalyzerFunc")
	}
}

func TestRegistry_ExtensionFaultsAreIsolated(t *testing.T) {
	t.Parallel()

	recorder := &faultRecorder{}
	r := NewRegistry(WithFaultObserver(recorder))

	partial := AnalyzerFunc(func(_ context.Context, _ resource.Resource, _ GenerationContext, out *Result) error {
		c, err := capability.NewBuilder().SetNamespace("com.example.partial").BuildCapability()
		if err != nil {
			return err
		}
		out.AddCapability(c)
		return errBroken
	})
	panicking := AnalyzerFunc(func(context.Context, resource.Resource, GenerationContext, *Result) error {
		panic("boom")
	})
	r.Register(partial, nil)
	r.Register(panicking, nil)
	r.Register(mustStatic(t, "healthy", "com.example.healthy"), nil)

	got, err := r.Dispatch(context.Background(), bundleResource(t, "foo.jar", "com.example.foo"), GenerationContext{})
	if err != nil {
		t.Fatalf("Dispatch() unexpected error: %v", err)
	}
	for _, c := range got.Capabilities {
		if c.Namespace() == "com.example.partial" {
			t.Error("output of a failed analyzer was merged")
		}
	}
	if last := got.Capabilities[len(got.Capabilities)-1]; last.Namespace() != "com.example.healthy" {
		t.Errorf("last capability = %s, want com.example.healthy", last.Namespace())
	}

	faults := recorder.all()
	if len(faults) != 2 {
		t.Fatalf("faults = %d, want 2", len(faults))
	}
	if !errors.Is(faults[0], errBroken) || faults[0].Panic != nil || faults[0].Resource != "foo.jar" {
		t.Errorf("faults[0] = %+v, want errBroken on foo.jar", faults[0])
	}
	if faults[1].Panic != "boom" {
		t.Errorf("faults[1].Panic = %v, want boom", faults[1].Panic)
	}
}

func TestRegistry_StrictExtensions(t *testing.T) {
	t.Parallel()

	r := NewRegistry(WithStrictExtensions())
	r.Register(AnalyzerFunc(func(context.Context, resource.Resource, GenerationContext, *Result) error {
		return errBroken
	}), nil)

	_, err := r.Dispatch(context.Background(), bundleResource(t, "foo.jar", "com.example.foo"), GenerationContext{})
	var fault *ExtensionFault
	if !errors.As(err, &fault) {
		t.Fatalf("Dispatch() error = %v, want *ExtensionFault", err)
	}
	if !errors.Is(err, errBroken) {
		t.Errorf("Dispatch() error = %v, want errBroken", err)
	}
}

func TestRegistry_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRegistry().Dispatch(ctx, bundleResource(t, "foo.jar", "com.example.foo"), GenerationContext{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Dispatch() error = %v, want context.Canceled", err)
	}
}

func TestRegistry_ConcurrentRegisterAndDispatch(t *testing.T) {
	t.Parallel()

	r := NewRegistry(WithFaultObserver(&faultRecorder{}))
	res := bundleResource(t, "foo.jar", "com.example.foo")

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a, err := NewStaticAnalyzer("static", "com.example.concurrent", nil)
			if err != nil {
				t.Errorf("NewStaticAnalyzer() unexpected error: %v", err)
				return
			}
			r.Register(a, nil)
			if i%2 == 0 {
				r.Unregister(a, nil)
			}
		}()
		go func() {
			defer wg.Done()
			got, err := r.Dispatch(context.Background(), res, GenerationContext{})
			if err != nil {
				t.Errorf("Dispatch() unexpected error: %v", err)
				return
			}
			if len(got.Capabilities) < 4 {
				t.Errorf("Dispatch() capabilities = %d, want at least 4", len(got.Capabilities))
			}
		}()
	}
	wg.Wait()

	if r.Len() != 5 {
		t.Errorf("Len() = %d, want 5", r.Len())
	}
}

func TestRegistry_ConcurrentDispatchKeepsGenerationContext(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	res := bundleResource(t, "bundles/foo.jar", "com.example.foo")

	const workers = 16
	got := make([]string, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gen := GenerationContext{URLTemplate: fmt.Sprintf("https://mirror%d.example.com/%%s/%%v/%%f", i)}
			out, err := r.Dispatch(context.Background(), res, gen)
			if err != nil {
				t.Errorf("Dispatch(%d) unexpected error: %v", i, err)
				return
			}
			for _, c := range out.Capabilities {
				if c.Namespace() != capability.NamespaceContent {
					continue
				}
				if url, ok := c.Attribute(capability.AttrURL); ok {
					got[i], _ = url.(string)
				}
			}
		}()
	}
	wg.Wait()

	for i, url := range got {
		if want := fmt.Sprintf("https://mirror%d.example.com/com.example.foo/1.0.0/foo.jar", i); url != want {
			t.Errorf("dispatch %d content url = %q, want %q", i, url, want)
		}
	}
}

func TestSlogFaultObserver(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	observer := NewSlogFaultObserver(slog.New(slog.NewTextHandler(&buf, nil)))
	observer.ObserveFault(context.Background(), &ExtensionFault{
		Resource: "foo.jar",
		Analyzer: "broken",
		Err:      errBroken,
		Panic:    "boom",
	})

	out := buf.String()
	for _, want := range []string{"level=WARN", "resource=foo.jar", "analyzer=broken", "panic=true"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q does not contain %q", out, want)
		}
	}
}
