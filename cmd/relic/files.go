package main

import (
	"fmt"
	"os"

	"github.com/reusee/relic/classfile"
	"github.com/reusee/relic/jvm"
	"github.com/reusee/relic/logs"
	"github.com/reusee/relic/relicconfigs"
	"github.com/reusee/relic/swf"
	"github.com/reusee/relic/units"
)

func decodeFile(decoders relicconfigs.Decoders, path string) (units.Unit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	unit, err := decoders.Decode(content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return unit, nil
}

func loadMovie(decoders relicconfigs.Decoders, path string) (*swf.Unit, error) {
	unit, err := decodeFile(decoders, path)
	if err != nil {
		return nil, err
	}
	movie, ok := unit.(*swf.Unit)
	if !ok {
		return nil, fmt.Errorf("%s: not a swf movie, got %v", path, unit.Format())
	}
	return movie, nil
}

// loadClasses loads every file into engine and returns the class names in
// load order.
func loadClasses(
	engine *jvm.Engine,
	decoders relicconfigs.Decoders,
	logger logs.Logger,
	paths []string,
) (names []string, err error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no class files")
	}
	for _, path := range paths {
		unit, err := decodeFile(decoders, path)
		if err != nil {
			return nil, err
		}
		class, ok := unit.(*classfile.Unit)
		if !ok {
			return nil, fmt.Errorf("%s: not a class file, got %v", path, unit.Format())
		}
		if err := engine.LoadUnit(path, class); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		names = append(names, class.Name)
	}
	logger.Debug("classes loaded",
		"classes", names,
	)
	return names, nil
}
