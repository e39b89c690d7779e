package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"runtime"
	"slices"
	"sync"

	"github.com/reusee/dscope"
	"github.com/reusee/relic/classfile"
	"github.com/reusee/relic/cmds"
	"github.com/reusee/relic/dcr"
	"github.com/reusee/relic/relicconfigs"
	"github.com/reusee/relic/swf"
	"github.com/reusee/relic/syncs"
	"github.com/reusee/relic/units"
	"github.com/reusee/relic/vars"
	"github.com/reusee/relic/xap"
)

var jobsFlag = cmds.Var[int]("-jobs")

func init() {
	cmds.Define("decode", cmds.Func(func(paths []string) {
		setAction(func(ctx context.Context, scope dscope.Scope) (err error) {
			scope.Call(func(
				decoders relicconfigs.Decoders,
			) {
				err = decodeAll(ctx, os.Stdout, decoders, paths,
					vars.FirstNonZero(*jobsFlag, runtime.NumCPU()))
			})
			return
		})
	}).Desc("decode files and print a summary, -jobs bounds parallel decoding").Args("<file>..."))
}

// decodeAll decodes in parallel and prints in argument order.
func decodeAll(
	ctx context.Context,
	w io.Writer,
	decoders relicconfigs.Decoders,
	paths []string,
	jobs int,
) error {
	sem := syncs.NewSemaphore(jobs)
	results := make([]units.Unit, len(paths))
	errs := make([]error, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		if err := sem.Acquire(ctx); err != nil {
			wg.Wait()
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release()
			results[i], errs[i] = decodeFile(decoders, path)
		}()
	}
	wg.Wait()

	for i, path := range paths {
		if errs[i] != nil {
			return errs[i]
		}
		fmt.Fprintf(w, "%s: %v\n", path, results[i].Format())
		summarize(w, results[i])
	}
	return nil
}

func summarize(w io.Writer, unit units.Unit) {
	switch unit := unit.(type) {

	case *swf.Unit:
		h := unit.Header
		fmt.Fprintf(w, "  signature %s, version %d, %d frames at %g fps\n",
			h.Signature, h.Version, h.FrameCount, h.FrameRate)
		fmt.Fprintf(w, "  stage %v\n", h.FrameSize)
		counts := make(map[string]int)
		for _, tag := range unit.Tags {
			counts[tag.Code().String()]++
		}
		for _, name := range slices.Sorted(maps.Keys(counts)) {
			fmt.Fprintf(w, "  %-24s %d\n", name, counts[name])
		}

	case *classfile.Unit:
		fmt.Fprintf(w, "  class %s extends %s, version %d.%d\n",
			unit.Name, unit.SuperName, unit.Major, unit.Minor)
		if unit.SourceFile != "" {
			fmt.Fprintf(w, "  source %s\n", unit.SourceFile)
		}
		for _, iface := range unit.InterfaceSet {
			fmt.Fprintf(w, "  implements %s\n", iface)
		}
		for _, f := range unit.Fields {
			fmt.Fprintf(w, "  field %s %s\n", f.Name, f.Descriptor)
		}
		for _, m := range unit.Methods {
			size := 0
			if m.Code != nil {
				size = len(m.Code.Bytecode)
			}
			fmt.Fprintf(w, "  method %s%s, %d bytes\n", m.Name, m.Descriptor, size)
		}

	case *xap.Unit:
		manifest := unit.Manifest
		fmt.Fprintf(w, "  entry point %s in %s, runtime %s\n",
			manifest.EntryPointType, manifest.EntryPointAssembly, manifest.RuntimeVersion)
		for _, part := range manifest.Parts {
			line := fmt.Sprintf("  part %s (%s)", part.Name, part.Source)
			if info, ok := unit.Assemblies[part.Source]; ok {
				line += fmt.Sprintf(", machine %#x, managed %v", info.Machine, info.Managed)
			}
			fmt.Fprintln(w, line)
		}
		for _, name := range unit.ResourceNames() {
			fmt.Fprintf(w, "  resource %s, %d bytes\n", name, len(unit.Resources[name]))
		}

	case *dcr.Unit:
		c := unit.Config
		fmt.Fprintf(w, "  %s/%s, file version %#x, stage %dx%d, %d fps\n",
			unit.Header.Magic, unit.Header.FormType, c.FileVersion,
			c.StageWidth(), c.StageHeight(), c.FrameRate)
		fmt.Fprintf(w, "  %d frames, %d sprite channels\n", len(unit.Frames), len(unit.Sprites))
		for _, n := range unit.ScriptFrames() {
			fmt.Fprintf(w, "  script at frame %d, %d bytes\n", n, len(unit.Scripts[n].Bytecode))
		}
		for _, text := range unit.Texts {
			fmt.Fprintf(w, "  text %q\n", text.Text)
		}

	}
}
