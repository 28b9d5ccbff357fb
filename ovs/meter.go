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
	"bytes"
	"errors"
	"fmt"
)

// errNoMeterBands is returned when a Meter has no Bands.
var errNoMeterBands = errors.New("meter must have one or more bands")

// MeterBand is a single rate-limiting band within a Meter. This fork only
// emits drop bands, matching the slicer's use of meters to shed excess
// traffic rather than remark it.
type MeterBand struct {
	// Rate is the band's threshold in kilobits per second.
	Rate uint64

	// BurstSize, if non-zero, bounds the burst allowance for this band.
	BurstSize uint64
}

func (b MeterBand) marshalText() []byte {
	if b.BurstSize != 0 {
		return bprintf("type=drop,rate=%d,burst_size=%d", b.Rate, b.BurstSize)
	}
	return bprintf("type=drop,rate=%d", b.Rate)
}

// A Meter is an OpenFlow meter table entry, understood by ovs-ofctl
// add-meter/del-meters.
type Meter struct {
	ID    uint32
	Bands []MeterBand
}

// MarshalText marshals a Meter to the textual form expected by ovs-ofctl
// add-meter.
func (m *Meter) MarshalText() ([]byte, error) {
	if len(m.Bands) == 0 {
		return nil, errNoMeterBands
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "meter=%d", m.ID)

	for _, b := range m.Bands {
		buf.WriteByte(',')
		buf.Write(b.marshalText())
	}

	return buf.Bytes(), nil
}

// MeterService provides access to ovs-ofctl meter table commands. Callers
// should check feature support before use; older Open vSwitch builds
// without OpenFlow 1.3 meter support reject these commands.
type MeterService struct {
	c *Client
}

// AddMeter installs or replaces a meter on bridge.
func (s *MeterService) AddMeter(bridge string, m *Meter) error {
	spec, err := m.MarshalText()
	if err != nil {
		return err
	}

	_, err = s.c.exec(s.c.ofctlCmd, s.c.ofctlArgs("add-meter", bridge, string(spec))...)
	return err
}

// DelMeters removes the meter identified by id from bridge.
func (s *MeterService) DelMeters(bridge string, id uint32) error {
	_, err := s.c.exec(s.c.ofctlCmd, s.c.ofctlArgs("del-meters", bridge, fmt.Sprintf("meter=%d", id))...)
	return err
}
