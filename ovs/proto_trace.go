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
	"encoding"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidProtoTrace is returned when the output from
	// ovs-appctl ofproto/trace is in an unexpected format.
	ErrInvalidProtoTrace = errors.New("invalid ofproto/trace output")

	datapathActionsRegexp = regexp.MustCompile(`Datapath actions: (.*)`)
	initialFlowRegexp     = regexp.MustCompile(`Flow: (.*)`)
	finalFlowRegexp       = regexp.MustCompile(`Final flow: (.*)`)
)

// portLOCAL is the textual form of the OVS reserved LOCAL port, as it
// appears in ofproto/trace flow dumps.
const portLOCAL = "LOCAL"

// Protocol identifies the packet protocol reported in an ofproto/trace flow
// description, e.g. "eth" for a bare Ethernet frame.
type Protocol string

// DataPathActions is a text unmarshaler for data path actions in
// ofproto/trace output.
type DataPathActions interface {
	encoding.TextUnmarshaler
}

// NewDataPathActions returns an implementation of DataPathActions.
func NewDataPathActions(actions string) DataPathActions {
	return &dataPathActions{
		actions: actions,
	}
}

type dataPathActions struct {
	actions string
}

func (d *dataPathActions) UnmarshalText(b []byte) error {
	d.actions = string(b)
	return nil
}

// DataPathFlows represents the initial/final flows passed/returned from
// ofproto/trace.
type DataPathFlows struct {
	Protocol Protocol
	Matches  []Match
}

// UnmarshalText unmarshals the initial/final data path flows from
// ofproto/trace output.
func (df *DataPathFlows) UnmarshalText(b []byte) error {
	matches := strings.Split(string(b), ",")

	if len(matches) == 0 {
		return errors.New("error unmarshalling text, no comma delimiter found")
	}

	// A leading element without "=" names the protocol; output that starts
	// directly with a field carries none.
	if !strings.Contains(matches[0], "=") {
		df.Protocol = Protocol(matches[0])
		matches = matches[1:]
	}

	for _, match := range matches {
		kv := strings.SplitN(match, "=", 2)
		if len(kv) != 2 {
			return fmt.Errorf("unexpected match format for match %q", match)
		}

		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])

		if key == inPort && value == portLOCAL {
			df.Matches = append(df.Matches, InPortMatch(PortLOCAL))
			continue
		}

		switch key {
		case inPort, metadata, dlVLAN, dlSRC, dlDST, dlType:
		default:
			// Fields outside this package's match vocabulary are skipped.
			continue
		}

		m, err := parseMatch(key, value)
		if err != nil {
			return err
		}

		df.Matches = append(df.Matches, m)
	}

	return nil
}

// ProtoTrace is a type representing output from ovs-appctl ofproto/trace.
type ProtoTrace struct {
	InputFlow       *DataPathFlows
	FinalFlow       *DataPathFlows
	DataPathActions DataPathActions
}

// Trace runs ovs-appctl ofproto/trace on bridge for the flow described by
// inPort and matches, and parses the result into a ProtoTrace. Used by the
// diagnostics surface to show what a hypothetical packet would do without
// actually sending one.
func (o *OpenFlowService) Trace(bridge string, inPort int, matches []Match) (*ProtoTrace, error) {
	var buf bytes.Buffer

	if inPort != 0 {
		fmt.Fprintf(&buf, "in_port=%s,", portString(inPort))
	}
	for _, m := range matches {
		mb, err := m.MarshalText()
		if err != nil {
			return nil, err
		}
		buf.Write(mb)
		buf.WriteByte(',')
	}
	spec := strings.TrimSuffix(buf.String(), ",")

	out, err := o.c.exec("ovs-appctl", "ofproto/trace", bridge, spec)
	if err != nil {
		return nil, err
	}

	trace := new(ProtoTrace)
	if err := trace.UnmarshalText(out); err != nil {
		return nil, err
	}
	return trace, nil
}

// UnmarshalText unmarshals ProtoTrace text into a ProtoTrace value.
func (pt *ProtoTrace) UnmarshalText(b []byte) error {
	lines := strings.Split(string(b), "\n")
	for _, line := range lines {
		if matches, matched := checkForDataPathActions(line); matched {
			pt.DataPathActions = &dataPathActions{
				actions: matches[1],
			}

			continue
		}

		if matches, matched := checkForInputFlow(line); matched {
			flow := &DataPathFlows{}
			if err := flow.UnmarshalText([]byte(matches[1])); err != nil {
				return err
			}

			pt.InputFlow = flow
			continue
		}

		if matches, matched := checkForFinalFlow(line); matched {
			flow := &DataPathFlows{}
			if err := flow.UnmarshalText([]byte(matches[1])); err != nil {
				return err
			}

			pt.FinalFlow = flow
			continue
		}
	}

	return nil
}

func checkForDataPathActions(s string) ([]string, bool) {
	matches := datapathActionsRegexp.FindStringSubmatch(s)
	if len(matches) == 0 {
		return matches, false
	}

	return matches, true
}

func checkForInputFlow(s string) ([]string, bool) {
	matches := initialFlowRegexp.FindStringSubmatch(s)
	if len(matches) == 0 {
		return matches, false
	}

	return matches, true
}

func checkForFinalFlow(s string) ([]string, bool) {
	matches := finalFlowRegexp.FindStringSubmatch(s)
	if len(matches) == 0 {
		return matches, false
	}

	return matches, true
}
