package ovs

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// parseMatch creates a Match value from a single "key=value" pair, as found
// in ovs-ofctl dump-flows output or ofproto/trace flow descriptions. Only
// the match vocabulary this fork emits is recognized; anything past the
// Ethernet header (L3/L4/ARP/ICMP) is rejected since the slicer pipeline
// never inspects it.
func parseMatch(key string, value string) (Match, error) {
	switch key {
	case inPort:
		return parseInPortMatch(value)
	case metadata:
		return parseMetadataMatch(value)
	case dlVLAN:
		return parseDataLinkVLAN(value)
	case dlSRC:
		return parseMACMatch(key, value)
	case dlDST:
		return parseMACMatch(key, value)
	case dlType:
		etherType, err := parseHexUint16(value)
		if err != nil {
			return nil, err
		}

		return DataLinkType(etherType), nil
	}

	return nil, fmt.Errorf("no match parsed for %s=%s", key, value)
}

// parseInPortMatch parses an InPortMatch, recognizing OVS's reserved port
// names alongside numeric port values.
func parseInPortMatch(value string) (Match, error) {
	for port, name := range reservedPortNames {
		if name == value {
			return InPortMatch(port), nil
		}
	}

	port, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}

	return InPortMatch(port), nil
}

// parseMetadataMatch parses a Metadata match from its hexadecimal form.
func parseMetadataMatch(value string) (Match, error) {
	v, err := parseHexUint64(strings.SplitN(value, "/", 2)[0])
	if err != nil {
		return nil, err
	}

	return Metadata(v), nil
}

// parseMACMatch parses a MAC address Match value from the input key and value.
func parseMACMatch(key string, value string) (Match, error) {
	mac, err := net.ParseMAC(value)
	if err != nil {
		return nil, err
	}

	switch key {
	case dlSRC:
		return DataLinkSource(mac), nil
	case dlDST:
		return DataLinkDestination(mac), nil
	}

	return nil, fmt.Errorf("no match parsed for %s=%s", key, value)
}

// hexPrefix denotes that a string integer is in hex format.
const hexPrefix = "0x"

// parseDataLinkVLAN parses a DataLinkVLAN Match from value.
func parseDataLinkVLAN(value string) (Match, error) {
	value = strings.SplitN(value, "/", 2)[0]

	if !strings.HasPrefix(value, hexPrefix) {
		vlan, err := strconv.Atoi(value)
		if err != nil {
			return nil, err
		}

		return DataLinkVLAN(vlan), nil
	}

	vlan, err := parseHexUint16(value)
	if err != nil {
		return nil, err
	}

	return DataLinkVLAN(int(vlan)), nil
}

// parseHexUint16 parses a uint16 value from a hexadecimal string.
func parseHexUint16(value string) (uint16, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(value, hexPrefix))
	if err != nil {
		return 0, err
	}
	if len(b) != 2 {
		return 0, errors.New("hexadecimal value must be two bytes in length")
	}

	return binary.BigEndian.Uint16(b), nil
}

// parseHexUint64 parses a uint64 value from a hexadecimal string, as used
// for the metadata register.
func parseHexUint64(value string) (uint64, error) {
	s := strings.TrimPrefix(value, hexPrefix)
	if len(s)%2 != 0 {
		s = "0" + s
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return 0, err
	}
	if len(b) > 8 {
		return 0, errors.New("hexadecimal value must be at most eight bytes in length")
	}

	var padded [8]byte
	copy(padded[8-len(b):], b)

	return binary.BigEndian.Uint64(padded[:]), nil
}
