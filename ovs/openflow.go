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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// An OpenFlowService provides access to methods which interact with
// ovs-ofctl, the command-line tool used to manage OpenFlow flow, group,
// and meter tables.
type OpenFlowService struct {
	c *Client

	// Group and Meter expose the group/meter table commands under the
	// same shell-out pattern as the rest of this service.
	Group *GroupService
	Meter *MeterService
}

// AddFlow adds a flow to bridge.
func (o *OpenFlowService) AddFlow(bridge string, f *Flow) error {
	spec, err := f.MarshalText()
	if err != nil {
		return err
	}

	_, err = o.c.exec(o.c.ofctlCmd, o.c.ofctlArgs("add-flow", bridge, string(spec))...)
	return err
}

// DelFlows deletes flows from bridge matching f. If f is nil, every flow on
// the bridge is removed.
func (o *OpenFlowService) DelFlows(bridge string, f *Flow) error {
	if f == nil {
		_, err := o.c.exec(o.c.ofctlCmd, o.c.ofctlArgs("del-flows", bridge)...)
		return err
	}

	spec, err := f.matchSpec()
	if err != nil {
		return err
	}

	_, err = o.c.exec(o.c.ofctlCmd, o.c.ofctlArgs("del-flows", bridge, string(spec))...)
	return err
}

// ModFlows changes the actions of existing flows on bridge matching f,
// without altering their match criteria or statistics.
func (o *OpenFlowService) ModFlows(bridge string, f *Flow) error {
	matchSpec, err := f.matchSpec()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Write(matchSpec)
	buf.WriteByte(',')
	if err := writeActions(&buf, f.Actions); err != nil {
		return err
	}

	_, err = o.c.exec(o.c.ofctlCmd, o.c.ofctlArgs("mod-flows", bridge, buf.String())...)
	return err
}

// ModPort changes a single characteristic of port on bridge, via ovs-ofctl
// mod-port.
func (o *OpenFlowService) ModPort(bridge string, port string, action PortAction) error {
	_, err := o.c.exec(o.c.ofctlCmd, "mod-port", bridge, port, string(action))
	return err
}

// PacketOut injects a packet into bridge as if it had arrived on inPort,
// applying actions. Used by the learning-switch path to flush a buffered
// packet once its destination is learned.
func (o *OpenFlowService) PacketOut(bridge string, inPort int, packet []byte, actions []Action) error {
	var abuf bytes.Buffer
	if err := writeActions(&abuf, actions); err != nil {
		return err
	}

	spec := fmt.Sprintf("in_port=%s,%s,packet=%x", portString(inPort), abuf.String(), packet)

	_, err := o.c.exec(o.c.ofctlCmd, o.c.ofctlArgs("packet-out", bridge, spec)...)
	return err
}

// DumpPort retrieves statistics for a single port on bridge.
func (o *OpenFlowService) DumpPort(bridge string, port string) (*PortStats, error) {
	out, err := o.c.exec(o.c.ofctlCmd, o.c.ofctlArgs("dump-ports", bridge, port)...)
	if err != nil {
		return nil, err
	}

	stats, err := parsePortStats(out)
	if err != nil {
		return nil, err
	}
	if len(stats) != 1 {
		return nil, errMultipleValues
	}

	return stats[0], nil
}

// DumpPorts retrieves statistics for every port on bridge.
func (o *OpenFlowService) DumpPorts(bridge string) ([]*PortStats, error) {
	out, err := o.c.exec(o.c.ofctlCmd, o.c.ofctlArgs("dump-ports", bridge)...)
	if err != nil {
		return nil, err
	}

	return parsePortStats(out)
}

// errMultipleValues is returned when a caller expected a single result but
// the switch reported more than one.
var errMultipleValues = fmt.Errorf("multiple values returned when one was expected")

// parsePortStats parses the body of an 'ovs-ofctl dump-ports' reply, which
// interleaves a "port N:" header line with a two-line rx/tx stats record.
func parsePortStats(b []byte) ([]*PortStats, error) {
	lines, err := nonEmptyLines(b)
	if err != nil {
		return nil, err
	}

	// First line is the OFPST_PORT reply header; skip it.
	lines = lines[1:]
	if len(lines)%2 != 0 {
		return nil, io.ErrUnexpectedEOF
	}

	var out []*PortStats
	for i := 0; i < len(lines); i += 2 {
		record := lines[i] + "\n" + lines[i+1]

		p := new(PortStats)
		if err := p.UnmarshalText([]byte(record)); err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	return out, nil
}

// AggregateStats retrieves the packet and byte counters for every flow on
// bridge whose cookie matches cookie under mask, via ovs-ofctl
// dump-aggregate. Used to report per-slice traffic by slice cookie; only
// flows carrying the queried cookie are counted.
func (o *OpenFlowService) AggregateStats(bridge string, cookie uint64, mask CookieMask) (*FlowStats, error) {
	spec := fmt.Sprintf("cookie=0x%016x/0x%016x", cookie, uint64(mask))

	out, err := o.c.exec(o.c.ofctlCmd, o.c.ofctlArgs("dump-aggregate", bridge, spec)...)
	if err != nil {
		return nil, err
	}

	stats := new(FlowStats)
	if err := stats.UnmarshalText(out); err != nil {
		return nil, err
	}

	return stats, nil
}

// DumpTables retrieves per-table statistics for bridge.
func (o *OpenFlowService) DumpTables(bridge string) ([]*Table, error) {
	out, err := o.c.exec(o.c.ofctlCmd, o.c.ofctlArgs("dump-tables", bridge)...)
	if err != nil {
		return nil, err
	}

	lines, err := nonEmptyLines(out)
	if err != nil {
		return nil, err
	}

	// First line is the OFPST_TABLE reply header; remaining lines pair up
	// two at a time, one table per pair, except a final summary-only table
	// row is ignored if present with malformed stats.
	lines = lines[1:]

	var tables []*Table
	for i := 0; i < len(lines); i += 2 {
		if i+1 >= len(lines) {
			break
		}

		record := lines[i] + "\n" + lines[i+1]

		tb := new(Table)
		if err := tb.UnmarshalText([]byte(record)); err != nil {
			return nil, ErrInvalidTable
		}

		tables = append(tables, tb)
	}

	return tables, nil
}

// nonEmptyLines splits b into trimmed, non-empty lines, requiring at least
// one line of content.
func nonEmptyLines(b []byte) ([]string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(b))

	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return nil, io.ErrUnexpectedEOF
	}

	return lines, nil
}
