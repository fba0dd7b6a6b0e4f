// Command statusgen converts a toolflow design manifest (JSON) into the
// binary status blob a platform's memory-initialization file is built from,
// and optionally emits that memory-initialization file directly.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tapasco-rs/runtime/pkg/status"
)

// composition describes one processing element slot in the design.
type composition struct {
	Type   string `json:"Type"`
	SlotID uint32 `json:"SlotId"`
	Kernel string `json:"Kernel"`
}

type clock struct {
	Name          string `json:"Name"`
	FrequencyMHz uint32 `json:"FrequencyMHz"`
}

type version struct {
	Software string `json:"Software"`
	Year     uint32 `json:"Year"`
	Release  uint32 `json:"Release"`
}

type component struct {
	Name    string `json:"Name"`
	Address uint64 `json:"Address"`
}

type architecture struct {
	Base    uint64   `json:"Base"`
	Offsets []uint64 `json:"Offsets"`
}

type platform struct {
	Base       uint64      `json:"Base"`
	Components []component `json:"Components"`
}

type baseAddresses struct {
	Architecture architecture `json:"Architecture"`
	Platform     platform     `json:"Platform"`
}

// design mirrors the toolflow's design manifest JSON schema.
type design struct {
	Composition   []composition `json:"Composition"`
	Timestamp     uint64        `json:"Timestamp"`
	Versions      []version     `json:"Versions"`
	Clocks        []clock       `json:"Clocks"`
	BaseAddresses baseAddresses `json:"BaseAddresses"`
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("statusgen: ")

	manifestPath := flag.String("manifest", "", "path to the design manifest JSON file")
	binOut := flag.String("bin", "", "path to write the binary status blob (optional)")
	coeOut := flag.String("coe", "", "path to write a memory-initialization (.coe-style) text file (optional)")
	flag.Parse()

	if *manifestPath == "" {
		log.Fatal("-manifest is required")
	}

	if err := run(*manifestPath, *binOut, *coeOut); err != nil {
		log.Fatal(err)
	}
}

func run(manifestPath, binOut, coeOut string) error {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	var d design
	if err := json.Unmarshal(raw, &d); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	st := toStatus(&d)
	blob := status.Marshal(st)

	if binOut != "" {
		if err := os.WriteFile(binOut, blob, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", binOut, err)
		}
	}
	if coeOut != "" {
		if err := os.WriteFile(coeOut, []byte(toCOE(blob)), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", coeOut, err)
		}
	}
	if binOut == "" && coeOut == "" {
		os.Stdout.Write(blob)
	}
	return nil
}

func toStatus(d *design) *status.Status {
	st := &status.Status{
		ArchBase:     d.BaseAddresses.Architecture.Base,
		PlatformBase: d.BaseAddresses.Platform.Base,
		Timestamp:    d.Timestamp,
	}

	offsets := d.BaseAddresses.Architecture.Offsets
	for i, comp := range d.Composition {
		var offset uint64
		if i < len(offsets) {
			offset = offsets[i]
		}
		st.PE = append(st.PE, status.PE{
			Name:   comp.Kernel,
			ID:     comp.SlotID,
			Offset: offset,
		})
	}

	for _, c := range d.BaseAddresses.Platform.Components {
		st.Platform = append(st.Platform, status.Component{Name: c.Name, Offset: c.Address})
	}
	for _, c := range d.Clocks {
		st.Clocks = append(st.Clocks, status.Clock{Name: c.Name, FrequencyMHz: c.FrequencyMHz})
	}
	for _, v := range d.Versions {
		st.Versions = append(st.Versions, status.Version{Software: v.Software, Year: v.Year, Release: v.Release})
	}

	return st
}

// toCOE renders blob as a Xilinx-style memory initialization text file: a
// hex radix declaration followed by one hex byte per line of the vector.
func toCOE(blob []byte) string {
	var b strings.Builder
	b.WriteString("memory_initialization_radix=16;\n")
	b.WriteString("memory_initialization_vector=\n")
	for i, by := range blob {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "%02x", by)
	}
	b.WriteString(";\n")
	return b.String()
}
