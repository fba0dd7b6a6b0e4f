// Package status implements the wire encoding for a device status blob: the
// per-PE and per-platform-component address map, clock frequencies and
// build version stamps that a platform's memory-initialization file is
// generated from. It is encoded with the protobuf wire format directly via
// protowire, without a generated message type.
package status

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers for the top-level Status message.
const (
	fieldArchBase     = 1
	fieldPlatformBase = 2
	fieldTimestamp    = 3
	fieldPE           = 4
	fieldPlatform     = 5
	fieldClocks       = 6
	fieldVersions     = 7
)

// Field numbers for the PE submessage.
const (
	fieldPEName        = 1
	fieldPEID          = 2
	fieldPEOffset       = 3
	fieldPELocalMemory = 4
)

// Field numbers for the Component submessage.
const (
	fieldComponentName   = 1
	fieldComponentOffset = 2
)

// Field numbers for the Clock submessage.
const (
	fieldClockName          = 1
	fieldClockFrequencyMHz = 2
)

// Field numbers for the Version submessage.
const (
	fieldVersionSoftware = 1
	fieldVersionYear     = 2
	fieldVersionRelease  = 3
)

// PE describes one processing element slot's address map entry.
type PE struct {
	Name        string
	ID          uint32
	Offset      uint64
	LocalMemory uint64
}

// Component describes one platform component's address.
type Component struct {
	Name   string
	Offset uint64
}

// Clock describes one named clock and its frequency.
type Clock struct {
	Name          string
	FrequencyMHz uint32
}

// Version describes one software component's version stamp.
type Version struct {
	Software string
	Year     uint32
	Release  uint32
}

// Status is the full per-device address map and build metadata blob.
type Status struct {
	ArchBase     uint64
	PlatformBase uint64
	Timestamp    uint64
	PE           []PE
	Platform     []Component
	Clocks       []Clock
	Versions     []Version
}

// Marshal encodes s into its protobuf wire representation.
func Marshal(s *Status) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldArchBase, protowire.VarintType)
	b = protowire.AppendVarint(b, s.ArchBase)
	b = protowire.AppendTag(b, fieldPlatformBase, protowire.VarintType)
	b = protowire.AppendVarint(b, s.PlatformBase)
	b = protowire.AppendTag(b, fieldTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, s.Timestamp)

	for _, pe := range s.PE {
		b = protowire.AppendTag(b, fieldPE, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalPE(&pe))
	}
	for _, c := range s.Platform {
		b = protowire.AppendTag(b, fieldPlatform, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalComponent(&c))
	}
	for _, c := range s.Clocks {
		b = protowire.AppendTag(b, fieldClocks, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalClock(&c))
	}
	for _, v := range s.Versions {
		b = protowire.AppendTag(b, fieldVersions, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalVersion(&v))
	}
	return b
}

func marshalPE(pe *PE) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldPEName, protowire.BytesType)
	b = protowire.AppendString(b, pe.Name)
	b = protowire.AppendTag(b, fieldPEID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(pe.ID))
	b = protowire.AppendTag(b, fieldPEOffset, protowire.VarintType)
	b = protowire.AppendVarint(b, pe.Offset)
	b = protowire.AppendTag(b, fieldPELocalMemory, protowire.VarintType)
	b = protowire.AppendVarint(b, pe.LocalMemory)
	return b
}

func marshalComponent(c *Component) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldComponentName, protowire.BytesType)
	b = protowire.AppendString(b, c.Name)
	b = protowire.AppendTag(b, fieldComponentOffset, protowire.VarintType)
	b = protowire.AppendVarint(b, c.Offset)
	return b
}

func marshalClock(c *Clock) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldClockName, protowire.BytesType)
	b = protowire.AppendString(b, c.Name)
	b = protowire.AppendTag(b, fieldClockFrequencyMHz, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.FrequencyMHz))
	return b
}

func marshalVersion(v *Version) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldVersionSoftware, protowire.BytesType)
	b = protowire.AppendString(b, v.Software)
	b = protowire.AppendTag(b, fieldVersionYear, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(v.Year))
	b = protowire.AppendTag(b, fieldVersionRelease, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(v.Release))
	return b
}

// Unmarshal decodes a Status from its protobuf wire representation.
func Unmarshal(data []byte) (*Status, error) {
	s := &Status{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("status: consume tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldArchBase, fieldPlatformBase, fieldTimestamp:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("status: consume varint: %w", protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case fieldArchBase:
				s.ArchBase = v
			case fieldPlatformBase:
				s.PlatformBase = v
			case fieldTimestamp:
				s.Timestamp = v
			}
		case fieldPE:
			msg, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("status: consume pe: %w", protowire.ParseError(n))
			}
			data = data[n:]
			pe, err := unmarshalPE(msg)
			if err != nil {
				return nil, err
			}
			s.PE = append(s.PE, *pe)
		case fieldPlatform:
			msg, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("status: consume platform component: %w", protowire.ParseError(n))
			}
			data = data[n:]
			c, err := unmarshalComponent(msg)
			if err != nil {
				return nil, err
			}
			s.Platform = append(s.Platform, *c)
		case fieldClocks:
			msg, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("status: consume clock: %w", protowire.ParseError(n))
			}
			data = data[n:]
			c, err := unmarshalClock(msg)
			if err != nil {
				return nil, err
			}
			s.Clocks = append(s.Clocks, *c)
		case fieldVersions:
			msg, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("status: consume version: %w", protowire.ParseError(n))
			}
			data = data[n:]
			v, err := unmarshalVersion(msg)
			if err != nil {
				return nil, err
			}
			s.Versions = append(s.Versions, *v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("status: skip unknown field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return s, nil
}

func unmarshalPE(data []byte) (*PE, error) {
	pe := &PE{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("status: pe: consume tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldPEName:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("status: pe: consume name: %w", protowire.ParseError(n))
			}
			pe.Name = v
			data = data[n:]
		case fieldPEID:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("status: pe: consume id: %w", protowire.ParseError(n))
			}
			pe.ID = uint32(v)
			data = data[n:]
		case fieldPEOffset:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("status: pe: consume offset: %w", protowire.ParseError(n))
			}
			pe.Offset = v
			data = data[n:]
		case fieldPELocalMemory:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("status: pe: consume local_memory: %w", protowire.ParseError(n))
			}
			pe.LocalMemory = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("status: pe: skip unknown field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return pe, nil
}

func unmarshalComponent(data []byte) (*Component, error) {
	c := &Component{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("status: component: consume tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldComponentName:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("status: component: consume name: %w", protowire.ParseError(n))
			}
			c.Name = v
			data = data[n:]
		case fieldComponentOffset:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("status: component: consume offset: %w", protowire.ParseError(n))
			}
			c.Offset = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("status: component: skip unknown field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return c, nil
}

func unmarshalClock(data []byte) (*Clock, error) {
	c := &Clock{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("status: clock: consume tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldClockName:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("status: clock: consume name: %w", protowire.ParseError(n))
			}
			c.Name = v
			data = data[n:]
		case fieldClockFrequencyMHz:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("status: clock: consume frequency: %w", protowire.ParseError(n))
			}
			c.FrequencyMHz = uint32(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("status: clock: skip unknown field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return c, nil
}

func unmarshalVersion(data []byte) (*Version, error) {
	v := &Version{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("status: version: consume tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldVersionSoftware:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("status: version: consume software: %w", protowire.ParseError(n))
			}
			v.Software = s
			data = data[n:]
		case fieldVersionYear:
			y, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("status: version: consume year: %w", protowire.ParseError(n))
			}
			v.Year = uint32(y)
			data = data[n:]
		case fieldVersionRelease:
			r, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("status: version: consume release: %w", protowire.ParseError(n))
			}
			v.Release = uint32(r)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("status: version: skip unknown field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return v, nil
}
