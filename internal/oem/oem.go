// Package oem builds the OEM/unicode conversion tables the fat package's
// short-name layer needs, backed by golang.org/x/text/encoding/charmap
// instead of a prebuilt binary table file.
package oem

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Table is the unicode<->OEM mapping for a single-byte code page, stored
// as 256 little-endian uint16 unicode code points indexed directly by OEM
// byte value.
type Table struct {
	name    string
	oem2uni [512]byte
}

// Name returns the code page name the table was loaded under, e.g. "ibm437".
func (t *Table) Name() string { return t.name }

// OEM2Uni returns the upper half of the packed little-endian OEM->unicode
// table: 128 uint16 values for OEM bytes 0x80-0xFF, 256 bytes in all, the
// layout fat's ff_oem2uni/ff_uni2oem lookups index.
func (t *Table) OEM2Uni() []byte { return t.oem2uni[256:] }

// Uni2OEM converts a unicode rune to its OEM byte value in this code page.
// It returns ok=false if the rune has no representation in the code page.
func (t *Table) Uni2OEM(r rune) (b byte, ok bool) {
	cm := t.charmap()
	if cm == nil {
		return 0, false
	}
	var src [utf8.UTFMax]byte
	n := utf8.EncodeRune(src[:], r)
	var dst [4]byte
	nd, _, err := cm.NewEncoder().Transform(dst[:], src[:n], true)
	if err != nil || nd == 0 {
		return 0, false
	}
	return dst[0], true
}

func (t *Table) charmap() *charmap.Charmap {
	cm, _ := registry[t.name]
	return cm
}

var registry = map[string]*charmap.Charmap{
	"ibm437": charmap.CodePage437,
	"cp437":  charmap.CodePage437,
	"cp850":  charmap.CodePage850,
	"cp852":  charmap.CodePage852,
	"cp855":  charmap.CodePage855,
	"cp860":  charmap.CodePage860,
	"cp862":  charmap.CodePage862,
	"cp863":  charmap.CodePage863,
	"cp865":  charmap.CodePage865,
	"cp866":  charmap.CodePage866,
}

// DefaultName is the code page used when a mount does not request one.
const DefaultName = "ibm437"

// Load builds the OEM<->unicode table for the named code page. Name is
// matched case-sensitively against the registry keys above; "ibm437" is
// the FAT/DOS default.
func Load(name string) (*Table, error) {
	if name == "" {
		name = DefaultName
	}
	cm, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("oem: unsupported code page %q", name)
	}
	t := &Table{name: name}
	dec := cm.NewDecoder()
	var dst [utf8.UTFMax]byte
	for b := 0; b < 256; b++ {
		r := rune(utf8.RuneError)
		n, _, err := dec.Transform(dst[:], []byte{byte(b)}, true)
		if err == nil && n > 0 {
			r, _ = utf8.DecodeRune(dst[:n])
		}
		dec.Reset()
		binary.LittleEndian.PutUint16(t.oem2uni[b*2:], uint16(r))
	}
	return t, nil
}
