package cmds

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestExecutor(t *testing.T) {
	executor := NewExecutor()

	var a int
	executor.Define("+a", Func(func() {
		a = 42
	}))
	executor.Define("a", Func(func(i int) {
		a = i
	}))

	if err := executor.Execute([]string{"+a"}); err != nil {
		t.Fatal(err)
	}
	if a != 42 {
		t.Fatalf("got %d", a)
	}

	if err := executor.Execute([]string{"a", "0x10"}); err != nil {
		t.Fatal(err)
	}
	if a != 16 {
		t.Fatalf("got %d", a)
	}

	err := executor.Execute([]string{"foo"})
	if err == nil || !strings.Contains(err.Error(), "unknown command: foo") {
		t.Fatalf("got %v", err)
	}

	err = executor.Execute([]string{"a"})
	if err == nil || !strings.Contains(err.Error(), "expecting int argument") {
		t.Fatalf("got %v", err)
	}
}

func TestExecutorRestArgs(t *testing.T) {
	executor := NewExecutor()
	var name string
	var files []string
	executor.Define("load", Func(func(n string, rest []string) {
		name = n
		files = rest
	}))
	if err := executor.Execute([]string{"load", "main", "a.class", "b.class"}); err != nil {
		t.Fatal(err)
	}
	if name != "main" || strings.Join(files, ",") != "a.class,b.class" {
		t.Fatalf("got %s %v", name, files)
	}
}

func TestExecutorError(t *testing.T) {
	executor := NewExecutor()
	fail := errors.New("fail")
	executor.Define("fail", Func(func() error {
		return fail
	}))
	executor.Define("ok", Func(func() error {
		return nil
	}))
	if err := executor.Execute([]string{"ok"}); err != nil {
		t.Fatal(err)
	}
	if err := executor.Execute([]string{"fail"}); !errors.Is(err, fail) {
		t.Fatalf("got %v", err)
	}
}

func TestOptionalArg(t *testing.T) {
	executor := NewExecutor()
	var got *int
	executor.Define("opt", Func(func(i *int) {
		got = i
	}))
	if err := executor.Execute([]string{"opt"}); err != nil {
		t.Fatal(err)
	}
	if got == nil || *got != 0 {
		t.Fatalf("got %v", got)
	}
	if err := executor.Execute([]string{"opt", "7"}); err != nil {
		t.Fatal(err)
	}
	if *got != 7 {
		t.Fatalf("got %v", *got)
	}
}

func TestSubCommands(t *testing.T) {
	executor := NewExecutor()
	var bar, baz int
	executor.Define("foo", Sub(map[string]*Command{
		"bar": Func(func() {
			bar++
		}),
		"baz": Func(func(i int) {
			baz = i
		}),
	}))
	if err := executor.Execute([]string{"foo", "bar", "baz", "3"}); err != nil {
		t.Fatal(err)
	}
	if bar != 1 || baz != 3 {
		t.Fatalf("got %d %d", bar, baz)
	}
	if err := executor.Execute([]string{"bar"}); err == nil {
		t.Fatal("sub command should not be visible at top level")
	}
}

func TestUsage(t *testing.T) {
	executor := NewExecutor()
	buf := new(bytes.Buffer)
	executor.Output = buf
	executor.Define("foo", Sub(map[string]*Command{
		"bar": Func(func(string) {}).Desc("BAR").Args("<name>"),
	}).Desc("FOO"))
	executor.PrintUsage()
	out := buf.String()
	for _, expected := range []string{"foo\tFOO", "  bar <name>\tBAR", "-h, help, -help, --help"} {
		if !strings.Contains(out, expected) {
			t.Fatalf("missing %q in %s", expected, out)
		}
	}
}
