package xap

import (
	"bytes"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/reusee/relic/units"
)

const ManifestName = "AppManifest.xaml"

type AssemblyPart struct {
	Name   string
	Source string
}

type Manifest struct {
	EntryPointAssembly string
	EntryPointType     string
	RuntimeVersion     string
	Parts              []AssemblyPart
	Root               *Element
}

// Unit is a decoded package. Resources is a flat name to bytes table;
// names are the zip entry names with forward slashes.
type Unit struct {
	Manifest   Manifest
	Resources  map[string][]byte
	Assemblies map[string]*PEInfo
}

var _ units.Unit = new(Unit)

func (u *Unit) Format() units.Format {
	return units.FormatXAP
}

// Resource looks name up exactly, then ignoring case.
func (u *Unit) Resource(name string) ([]byte, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if data, ok := u.Resources[name]; ok {
		return data, true
	}
	for k, v := range u.Resources {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func (u *Unit) ResourceNames() []string {
	names := make([]string, 0, len(u.Resources))
	for name := range u.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EntryPoint is the assembly part named by EntryPointAssembly.
func (u *Unit) EntryPoint() (AssemblyPart, bool) {
	for _, part := range u.Manifest.Parts {
		if part.Name == u.Manifest.EntryPointAssembly {
			return part, true
		}
	}
	return AssemblyPart{}, false
}

type Decoder struct {
	Limits units.Limits
}

var _ units.Decoder = Decoder{}

func (Decoder) Format() units.Format {
	return units.FormatXAP
}

func (Decoder) Match(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

func (d Decoder) Decode(data []byte) (units.Unit, error) {
	return d.DecodePackage(data)
}

func Decode(data []byte) (*Unit, error) {
	return Decoder{}.DecodePackage(data)
}

func (d Decoder) DecodePackage(data []byte) (*Unit, error) {
	magic := []byte("PK\x03\x04")
	for i := 0; i < len(data) && i < len(magic); i++ {
		if data[i] != magic[i] {
			return nil, units.Errorf(units.FormatXAP, units.BadMagic, 0, "not a zip archive")
		}
	}
	if len(data) < len(magic) {
		return nil, units.Errorf(units.FormatXAP, units.Truncated, len(data), "short zip header")
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		kind := units.MalformedField
		if errors.Is(err, io.ErrUnexpectedEOF) {
			kind = units.Truncated
		}
		return nil, &units.ParseError{
			Format: units.FormatXAP,
			Kind:   kind,
			Reason: "zip",
			Err:    err,
		}
	}

	unit := &Unit{
		Resources:  make(map[string][]byte),
		Assemblies: make(map[string]*PEInfo),
	}
	budget := units.Limits{MaxDecodedBytes: d.Limits.Max()}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if _, ok := unit.Resources[name]; ok {
			return nil, units.Errorf(units.FormatXAP, units.MalformedField, 0,
				"duplicate entry %q", name)
		}
		offset, _ := f.DataOffset()
		rc, err := f.Open()
		if err != nil {
			return nil, &units.ParseError{
				Format: units.FormatXAP,
				Kind:   units.MalformedField,
				Offset: int(offset),
				Reason: name,
				Err:    err,
			}
		}
		content, err := budget.ReadAll(units.FormatXAP, int(offset), rc, int64(min(f.UncompressedSize64, 1<<62)))
		rc.Close()
		if err != nil {
			return nil, err
		}
		budget.MaxDecodedBytes -= int64(len(content))
		if budget.MaxDecodedBytes <= 0 {
			return nil, units.Errorf(units.FormatXAP, units.MalformedField, int(offset),
				"decompressed size exceeds limit %d", d.Limits.Max())
		}
		unit.Resources[name] = content
	}

	manifestData, ok := unit.Resource(ManifestName)
	if !ok {
		return nil, units.Errorf(units.FormatXAP, units.MalformedField, 0, "missing %s", ManifestName)
	}
	if unit.Manifest, err = parseManifest(manifestData); err != nil {
		return nil, err
	}

	for _, part := range unit.Manifest.Parts {
		content, ok := unit.Resource(part.Source)
		if !ok {
			return nil, units.Errorf(units.FormatXAP, units.MalformedField, 0,
				"assembly part %q: missing %s", part.Name, part.Source)
		}
		info, err := ReadPEInfo(content)
		if err != nil {
			return nil, err
		}
		unit.Assemblies[part.Source] = info
	}

	return unit, nil
}

func parseManifest(data []byte) (m Manifest, err error) {
	root, err := ParseXAML(data)
	if err != nil {
		return
	}
	if root.Name != "Deployment" {
		return m, units.Errorf(units.FormatXAP, units.MalformedField, 0,
			"manifest root is %s", root.Name)
	}
	m.Root = root
	m.EntryPointAssembly, _ = root.Attr("EntryPointAssembly")
	m.EntryPointType, _ = root.Attr("EntryPointType")
	m.RuntimeVersion, _ = root.Attr("RuntimeVersion")
	if m.EntryPointAssembly == "" {
		return m, units.Errorf(units.FormatXAP, units.MalformedField, 0,
			"manifest has no EntryPointAssembly")
	}
	if parts := root.Child("Deployment.Parts"); parts != nil {
		for _, c := range parts.Children {
			if c.Name != "AssemblyPart" {
				continue
			}
			source, ok := c.Attr("Source")
			if !ok || source == "" {
				return m, units.Errorf(units.FormatXAP, units.MalformedField, 0,
					"assembly part %q has no Source", c.XName())
			}
			m.Parts = append(m.Parts, AssemblyPart{
				Name:   c.XName(),
				Source: source,
			})
		}
	}
	return m, nil
}
