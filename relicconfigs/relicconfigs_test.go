package relicconfigs

import (
	"io"
	"strings"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/relic/configs"
	"github.com/reusee/relic/jvm"
	"github.com/reusee/relic/logs"
	"github.com/reusee/relic/modes"
	"github.com/reusee/relic/stage"
	"github.com/reusee/relic/swf"
	"github.com/reusee/relic/units"
)

func testScope(t *testing.T, sources ...string) dscope.Scope {
	var names []string
	var contents [][]byte
	for i, src := range sources {
		names = append(names, string(rune('a'+i))+".cue")
		contents = append(contents, []byte(src))
	}
	return dscope.New(new(Module), modes.ForTest(t)).Fork(
		func() logs.Writer {
			return io.Discard
		},
		func() configs.Loader {
			return configs.NewSourceLoader(names, contents, schema)
		},
	)
}

func TestDefaults(t *testing.T) {
	testScope(t).Call(func(
		opts jvm.Options,
		stageOpts stage.Options,
		limits units.Limits,
		scale StageScale,
		charset LegacyCharset,
	) {
		if opts != jvm.DefaultOptions() {
			t.Fatalf("got %+v", opts)
		}
		if stageOpts.Script.MaxInstructions != 10_000_000 {
			t.Fatalf("got %+v", stageOpts.Script)
		}
		if stageOpts.MaxScriptsPerTick != stage.DefaultOptions().MaxScriptsPerTick {
			t.Fatalf("got %+v", stageOpts)
		}
		if limits.Max() != units.DefaultMaxDecodedBytes {
			t.Fatalf("got %v", limits)
		}
		if scale != 20 {
			t.Fatalf("got %v", scale)
		}
		if charset != "windows-1252" {
			t.Fatalf("got %q", charset)
		}
	})
}

func TestConfigFiles(t *testing.T) {
	testScope(t,
		`maxCallDepth: 64
maxInstructions: 0`,
		`maxCallDepth: 128
maxOperandStack: 32
maxDecodedBytes: 1024
stageScale: 10
legacyCharset: "macintosh"`,
	).Call(func(
		opts jvm.Options,
		stageOpts stage.Options,
		limits units.Limits,
		scale StageScale,
	) {
		if opts.MaxCallDepth != 64 {
			t.Fatalf("got %d", opts.MaxCallDepth)
		}
		if opts.MaxOperandStack != 32 {
			t.Fatalf("got %d", opts.MaxOperandStack)
		}
		// explicit zero means unlimited
		if opts.MaxInstructions != 0 {
			t.Fatalf("got %d", opts.MaxInstructions)
		}
		if stageOpts.Script.MaxCallDepth != 64 || stageOpts.Script.MaxInstructions != 0 {
			t.Fatalf("got %+v", stageOpts.Script)
		}
		if limits.Max() != 1024 {
			t.Fatalf("got %v", limits)
		}
		if scale != 10 {
			t.Fatalf("got %v", scale)
		}
	})
}

func TestDecoders(t *testing.T) {
	b := swf.NewMovieBuilder(5)
	b.Tag(swf.TagFrameLabel, []byte{0x93, 'h', 'i', 0})
	data := b.Bytes()

	testScope(t, `legacyCharset: "macintosh"`).Call(func(
		decoders Decoders,
	) {
		unit, err := decoders.Decode(data)
		if err != nil {
			t.Fatal(err)
		}
		if name := unit.(*swf.Unit).Tags[0].(*swf.FrameLabel).Name; name != "ìhi" {
			t.Fatalf("got %q", name)
		}
	})

	testScope(t, `legacyCharset: "no-such-charset"`).Call(func(
		decoders Decoders,
	) {
		unit, err := decoders.Decode(data)
		if err != nil {
			t.Fatal(err)
		}
		if name := unit.(*swf.Unit).Tags[0].(*swf.FrameLabel).Name; name != "“hi" {
			t.Fatalf("got %q", name)
		}
	})

	testScope(t).Call(func(
		decoders Decoders,
	) {
		if _, err := decoders.Decode([]byte("nope")); err == nil {
			t.Fatal("expecting error")
		}
	})
}

func TestSchemaViolation(t *testing.T) {
	testScope(t, `maxCallDepth: -1`).Call(func(
		loader configs.Loader,
	) {
		func() {
			defer func() {
				p := recover()
				if p == nil {
					t.Fatal("expecting panic")
				}
				err, ok := p.(error)
				if !ok || !strings.Contains(err.Error(), "config maxCallDepth") {
					t.Fatalf("got %v", p)
				}
			}()
			configs.First[int](loader, "maxCallDepth")
		}()
	})
}

func TestLoaderIgnoresFilesInTests(t *testing.T) {
	dscope.New(new(Module), modes.ForTest(t)).Fork(
		func() logs.Writer {
			return io.Discard
		},
	).Call(func(
		depth MaxCallDepth,
	) {
		if int(depth) != jvm.DefaultOptions().MaxCallDepth {
			t.Fatalf("got %d", depth)
		}
	})
}
