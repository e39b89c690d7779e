package xap

import (
	"bytes"
	"debug/pe"
	"fmt"

	"github.com/reusee/relic/units"
)

// PEInfo is what is read from an assembly part. Nothing in it is executed.
type PEInfo struct {
	Machine         uint16
	Characteristics uint16
	Is64            bool
	Sections        []string
	// a CLI header marks a managed (.NET) assembly
	Managed bool
}

const cliHeaderDirectory = 14

func ReadPEInfo(data []byte) (_ *PEInfo, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = units.Errorf(units.FormatXAP, units.MalformedField, 0, "pe: %v", p)
		}
	}()
	if !bytes.HasPrefix(data, []byte("MZ")) {
		return nil, units.Errorf(units.FormatXAP, units.BadMagic, 0, "not a PE image")
	}
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, &units.ParseError{
			Format: units.FormatXAP,
			Kind:   units.MalformedField,
			Reason: "pe",
			Err:    err,
		}
	}
	defer f.Close()
	info := &PEInfo{
		Machine:         f.Machine,
		Characteristics: f.Characteristics,
	}
	for _, s := range f.Sections {
		info.Sections = append(info.Sections, s.Name)
	}
	switch h := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		info.Managed = int(h.NumberOfRvaAndSizes) > cliHeaderDirectory &&
			h.DataDirectory[cliHeaderDirectory].VirtualAddress != 0
	case *pe.OptionalHeader64:
		info.Is64 = true
		info.Managed = int(h.NumberOfRvaAndSizes) > cliHeaderDirectory &&
			h.DataDirectory[cliHeaderDirectory].VirtualAddress != 0
	}
	return info, nil
}

func (p *PEInfo) String() string {
	kind := "native"
	if p.Managed {
		kind = "managed"
	}
	return fmt.Sprintf("%s machine %#04x sections %v", kind, p.Machine, p.Sections)
}
