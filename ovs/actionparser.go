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
	"regexp"
	"strconv"
	"strings"
)

// An actionParser is a parser for OVS flow actions.
type actionParser struct {
	r *bufio.Reader
	s stack
}

// newActionParser creates a new actionParser which wraps the input
// io.Reader.
func newActionParser(r io.Reader) *actionParser {
	return &actionParser{
		r: bufio.NewReader(r),
		s: make(stack, 0),
	}
}

// eof is a sentinel rune for end of file.
var eof = rune(0)

// read reads a single rune from the wrapped io.Reader. It returns eof
// if no more runes are present.
func (p *actionParser) read() rune {
	ch, _, err := p.r.ReadRune()
	if err != nil {
		return eof
	}
	return ch
}

// Parse parses a slice of Actions using the wrapped io.Reader. The raw
// action strings are also returned for inspection if needed.
func (p *actionParser) Parse() ([]Action, []string, error) {
	var actions []Action
	var raw []string

	for {
		a, r, err := p.parseAction()
		if err != nil {
			if err == io.EOF {
				break
			}

			return nil, nil, err
		}

		actions = append(actions, a)
		raw = append(raw, r)
	}

	return actions, raw, nil
}

// parseAction parses a single Action and its raw text from the wrapped
// io.Reader.
func (p *actionParser) parseAction() (Action, string, error) {
	var buf bytes.Buffer

	for {
		ch := p.read()

		if ch == ',' && p.s.len() == 0 {
			break
		}

		if ch == eof {
			if buf.Len() == 0 {
				return nil, "", io.EOF
			}

			break
		}

		switch ch {
		case '(':
			p.s.push()
		case ')':
			p.s.pop()
		}

		_, _ = buf.WriteRune(ch)
	}

	if p.s.len() > 0 {
		return nil, "", fmt.Errorf("invalid action: %q", buf.String())
	}

	s := buf.String()
	act, err := parseAction(s)
	return act, s, err
}

// A stack is a basic stack with elements that have no value.
type stack []struct{}

// len returns the current length of the stack.
func (s *stack) len() int {
	return len(*s)
}

// push adds an element to the stack.
func (s *stack) push() {
	*s = append(*s, struct{}{})
}

// pop removes an element from the stack.
func (s *stack) pop() {
	*s = (*s)[:s.len()-1]
}

var (
	// outputRe matches the output action, e.g. "output:3" or "output:LOCAL".
	outputRe = regexp.MustCompile(`^output:(\S+)$`)

	// groupRe matches the group action, e.g. "group:4".
	groupRe = regexp.MustCompile(`^group:(\d+)$`)

	// controllerRe matches the controller action, e.g. "controller:65535".
	controllerRe = regexp.MustCompile(`^controller:(\d+)$`)

	// gotoTableRe matches the goto_table action, e.g. "goto_table:2".
	gotoTableRe = regexp.MustCompile(`^goto_table:(\d+)$`)

	// setFieldRe matches the set_field action, e.g. "set_field:0x3->metadata".
	setFieldRe = regexp.MustCompile(`^set_field:(\S+)->(\S+)$`)

	// pushVLANRe matches the push_vlan action, e.g. "push_vlan:0x8100".
	pushVLANRe = regexp.MustCompile(`^push_vlan:(\S+)$`)

	// meterRe matches the meter action, e.g. "meter:7".
	meterRe = regexp.MustCompile(`^meter:(\d+)$`)
)

// parseAction creates an Action value from the input string.
func parseAction(s string) (Action, error) {
	switch strings.ToLower(s) {
	case actionDrop:
		return Drop(), nil
	case "pop_vlan":
		return PopVLAN(), nil
	}

	if ss := outputRe.FindStringSubmatch(s); ss != nil {
		port, err := parsePortToken(ss[1])
		if err != nil {
			return nil, err
		}

		return Output(port), nil
	}

	if ss := groupRe.FindStringSubmatch(s); ss != nil {
		group, err := strconv.ParseUint(ss[1], 10, 32)
		if err != nil {
			return nil, err
		}

		return Group(uint32(group)), nil
	}

	if ss := controllerRe.FindStringSubmatch(s); ss != nil {
		maxLen, err := strconv.Atoi(ss[1])
		if err != nil {
			return nil, err
		}

		return Controller(maxLen), nil
	}

	if ss := gotoTableRe.FindStringSubmatch(s); ss != nil {
		table, err := strconv.ParseUint(ss[1], 10, 8)
		if err != nil {
			return nil, err
		}

		return GotoTable(uint8(table)), nil
	}

	if ss := setFieldRe.FindStringSubmatch(s); ss != nil {
		return SetField(ss[1], ss[2]), nil
	}

	if ss := pushVLANRe.FindStringSubmatch(s); ss != nil {
		etherType, err := parseHexUint16(ss[1])
		if err != nil {
			return nil, err
		}

		return PushVLAN(etherType), nil
	}

	if ss := meterRe.FindStringSubmatch(s); ss != nil {
		id, err := strconv.ParseUint(ss[1], 10, 32)
		if err != nil {
			return nil, err
		}

		return Meter(uint32(id)), nil
	}

	return nil, fmt.Errorf("no action matched for %q", s)
}

// parsePortToken parses a port number or one of OVS's reserved port names.
func parsePortToken(s string) (int, error) {
	for port, name := range reservedPortNames {
		if name == s {
			return port, nil
		}
	}

	return strconv.Atoi(s)
}
