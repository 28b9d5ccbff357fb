// Copyright 2017 DigitalOcean.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ovs

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidPortStats is returned when input from 'ovs-ofctl dump-ports'
// cannot be parsed as a PortStats.
var ErrInvalidPortStats = errors.New("invalid port statistics")

// PortStatsReceive contains statistics about packets received on a port.
type PortStatsReceive struct {
	Packets uint64
	Bytes   uint64
	Dropped uint64
	Errors  uint64
	Frame   uint64
	Over    uint64
	CRC     uint64
}

// PortStatsTransmit contains statistics about packets transmitted on a port.
type PortStatsTransmit struct {
	Packets    uint64
	Bytes      uint64
	Dropped    uint64
	Errors     uint64
	Collisions uint64
}

// PortStats contains statistics about an Open vSwitch port, as reported by
// 'ovs-ofctl dump-ports'.
type PortStats struct {
	PortID      int
	Received    PortStatsReceive
	Transmitted PortStatsTransmit
}

// UnmarshalText unmarshals a PortStats from textual form as output by
// 'ovs-ofctl dump-ports <bridge> <port>':
//   port  1: rx pkts=1, bytes=1, drop=1, errs=1, frame=1, over=1, crc=1
//            tx pkts=1, bytes=1, drop=1, errs=1, coll=1
func (p *PortStats) UnmarshalText(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	s := strings.Join(strings.Fields(strings.ReplaceAll(trimmed, "\n", " , ")), " ")

	fields := strings.SplitN(s, ":", 2)
	if len(fields) != 2 {
		return ErrInvalidPortStats
	}

	header := strings.Fields(fields[0])
	if len(header) != 2 || header[0] != "port" {
		return ErrInvalidPortStats
	}

	if header[1] == portLOCAL {
		p.PortID = PortLOCAL
	} else {
		id, err := strconv.ParseInt(header[1], 10, 32)
		if err != nil {
			return err
		}
		p.PortID = int(id)
	}

	rxTx := strings.SplitN(fields[1], "tx", 2)
	if len(rxTx) != 2 {
		return ErrInvalidPortStats
	}

	rx := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rxTx[0]), "rx"))
	tx := strings.TrimSpace(rxTx[1])

	rxVals, err := parseStatFields(rx)
	if err != nil {
		return err
	}
	if err := assignUint(rxVals, "pkts", &p.Received.Packets); err != nil {
		return err
	}
	if err := assignUint(rxVals, "bytes", &p.Received.Bytes); err != nil {
		return err
	}
	if err := assignUint(rxVals, "drop", &p.Received.Dropped); err != nil {
		return err
	}
	if err := assignUint(rxVals, "errs", &p.Received.Errors); err != nil {
		return err
	}
	if err := assignUint(rxVals, "frame", &p.Received.Frame); err != nil {
		return err
	}
	if err := assignUint(rxVals, "over", &p.Received.Over); err != nil {
		return err
	}
	if err := assignUint(rxVals, "crc", &p.Received.CRC); err != nil {
		return err
	}

	txVals, err := parseStatFields(tx)
	if err != nil {
		return err
	}
	if err := assignUint(txVals, "pkts", &p.Transmitted.Packets); err != nil {
		return err
	}
	if err := assignUint(txVals, "bytes", &p.Transmitted.Bytes); err != nil {
		return err
	}
	if err := assignUint(txVals, "drop", &p.Transmitted.Dropped); err != nil {
		return err
	}
	if err := assignUint(txVals, "errs", &p.Transmitted.Errors); err != nil {
		return err
	}
	if err := assignUint(txVals, "coll", &p.Transmitted.Collisions); err != nil {
		return err
	}

	return nil
}

// parseStatFields parses a comma-joined list of key=value pairs, tolerating
// a trailing ", duration=...s" clause emitted by newer ovs-ofctl versions.
func parseStatFields(s string) (map[string]string, error) {
	vals := make(map[string]string)

	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}

		kv := strings.SplitN(f, "=", 2)
		if len(kv) != 2 {
			return nil, ErrInvalidPortStats
		}

		if strings.HasPrefix(kv[0], "duration") {
			continue
		}

		vals[kv[0]] = kv[1]
	}

	return vals, nil
}

// assignUint requires key to be present and a valid counter; "?" denotes a
// value the switch did not report, which parses as zero.
func assignUint(vals map[string]string, key string, dst *uint64) error {
	v, ok := vals[key]
	if !ok {
		return ErrInvalidPortStats
	}

	if v == "?" {
		*dst = 0
		return nil
	}

	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return err
	}

	*dst = n
	return nil
}
