package proximity

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/denysvitali/proximity-go/model"
)

const (
	ADTypeServiceData16   = 0x16
	ADTypeManufacturer    = 0xFF
	maxADStructureDataLen = 0xFE
)

type ADStructure struct {
	Type byte
	Data []byte
}

// ParseADStructures splits a raw advertising report into its
// length-prefixed AD structures. A zero length ends the report.
func ParseADStructures(msg []byte) ([]ADStructure, error) {
	var ads []ADStructure
	for i := 0; i < len(msg); {
		adLen := int(msg[i])
		if adLen == 0 {
			break
		}
		if i+1+adLen > len(msg) {
			return nil, fmt.Errorf("%w: AD structure at %d overruns report", ErrInvalidArgument, i)
		}
		ads = append(ads, ADStructure{
			Type: msg[i+1],
			Data: msg[i+2 : i+1+adLen],
		})
		i += 1 + adLen
	}
	return ads, nil
}

type Field struct {
	Offset int
	Length int
}

func (f Field) end() int {
	return f.Offset + f.Length
}

// Layout describes where identifier and metadata sit inside the data of one
// AD structure. Tag is stored little-endian at offset 0.
type Layout struct {
	Name       string
	Protocol   model.Protocol
	ADType     byte
	Tag        model.ServiceTag
	Prefix     []byte
	Identifier Field
	Metadata   Field
}

var (
	GAENLayout = Layout{
		Name:       "apple-google-en",
		Protocol:   model.GAEN,
		ADType:     ADTypeServiceData16,
		Tag:        GAENServiceTag,
		Identifier: Field{Offset: 2, Length: 16},
		Metadata:   Field{Offset: 18, Length: 4},
	}
	DP3TLayout = Layout{
		Name:       "dp3t",
		Protocol:   model.DP3T,
		ADType:     ADTypeServiceData16,
		Tag:        DP3TServiceTag,
		Identifier: Field{Offset: 2, Length: 16},
	}
	EddystoneUIDLayout = Layout{
		Name:       "eddystone-uid",
		Protocol:   model.EddystoneUID,
		ADType:     ADTypeServiceData16,
		Tag:        EddystoneServiceTag,
		Prefix:     []byte{eddystoneFrameUID},
		Identifier: Field{Offset: 4, Length: 16},
		Metadata:   Field{Offset: 3, Length: 1},
	}
	IBeaconLayout = Layout{
		Name:       "ibeacon",
		Protocol:   model.IBeacon,
		ADType:     ADTypeManufacturer,
		Tag:        AppleCompanyID,
		Prefix:     []byte{iBeaconType, iBeaconLength},
		Identifier: Field{Offset: 4, Length: 16},
		Metadata:   Field{Offset: 20, Length: 4},
	}

	Layouts = []Layout{GAENLayout, DP3TLayout, EddystoneUIDLayout, IBeaconLayout}
)

func (l Layout) Matches(ad ADStructure) bool {
	if ad.Type != l.ADType || len(ad.Data) < 2+len(l.Prefix) {
		return false
	}
	if model.ServiceTag(binary.LittleEndian.Uint16(ad.Data)) != l.Tag {
		return false
	}
	return bytes.Equal(ad.Data[2:2+len(l.Prefix)], l.Prefix)
}

// Decode extracts a sighting from the data of a matching AD structure.
func (l Layout) Decode(ad ADStructure, rssi int, meanRSSI float64) (model.Sighting, error) {
	if !l.Matches(ad) {
		return model.Sighting{}, fmt.Errorf("%w: not a %s structure", ErrUnknownFormat, l.Name)
	}
	if len(ad.Data) < l.Identifier.end() || len(ad.Data) < l.Metadata.end() {
		return model.Sighting{}, fmt.Errorf("%w: %s data is %d bytes", ErrInvalidArgument, l.Name, len(ad.Data))
	}
	return model.Sighting{
		Identifier: hexField(ad.Data[l.Identifier.Offset:l.Identifier.end()]),
		Metadata:   hexField(ad.Data[l.Metadata.Offset:l.Metadata.end()]),
		RSSI:       rssi,
		MeanRSSI:   meanRSSI,
	}, nil
}

// Encode frames an advertisement as the AD structure the matching layout
// reads back.
func (l Layout) Encode(adv model.Advertisement) ([]byte, error) {
	dataLen := 2 + len(adv.Payload)
	if dataLen > maxADStructureDataLen {
		return nil, fmt.Errorf("%w: payload of %d bytes", ErrInvalidArgument, len(adv.Payload))
	}
	out := make([]byte, 2, 2+dataLen)
	out[0] = byte(1 + dataLen)
	out[1] = l.ADType
	out = binary.LittleEndian.AppendUint16(out, uint16(adv.ServiceTag))
	return append(out, adv.Payload...), nil
}

func LayoutFor(p model.Protocol) (Layout, error) {
	for _, l := range Layouts {
		if l.Protocol == p {
			return l, nil
		}
	}
	return Layout{}, fmt.Errorf("%w: no layout for %s", ErrInvalidArgument, p)
}

// DecodeAdvertisement decodes the first AD structure of raw that a known
// layout recognises.
func DecodeAdvertisement(raw []byte, rssi int, meanRSSI float64) (model.Sighting, model.Protocol, error) {
	ads, err := ParseADStructures(raw)
	if err != nil {
		return model.Sighting{}, 0, err
	}
	for _, ad := range ads {
		for _, l := range Layouts {
			if !l.Matches(ad) {
				continue
			}
			s, err := l.Decode(ad, rssi, meanRSSI)
			if err != nil {
				return model.Sighting{}, 0, err
			}
			return s, l.Protocol, nil
		}
	}
	return model.Sighting{}, 0, ErrUnknownFormat
}
