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

import "strings"

// A VSwitchService provides access to methods which interact with
// ovs-vsctl, the command-line tool used to manage bridges, ports, and
// controller configuration for Open vSwitch.
type VSwitchService struct {
	c *Client
}

// AddBridge creates bridge if it does not already exist.
func (v *VSwitchService) AddBridge(bridge string) error {
	_, err := v.c.exec(v.c.vsctlCmd, "--may-exist", "add-br", bridge)
	return err
}

// DeleteBridge removes bridge, if it exists.
func (v *VSwitchService) DeleteBridge(bridge string) error {
	_, err := v.c.exec(v.c.vsctlCmd, "--if-exists", "del-br", bridge)
	return err
}

// AddPort attaches port to bridge, if it is not already attached.
func (v *VSwitchService) AddPort(bridge string, port string) error {
	_, err := v.c.exec(v.c.vsctlCmd, "--may-exist", "add-port", bridge, port)
	return err
}

// DeletePort detaches port from bridge, if it is attached. Like every other
// method of this service, it returns the raw error value (possibly nil,
// possibly *Error) without wrapping it.
func (v *VSwitchService) DeletePort(bridge string, port string) error {
	_, err := v.c.exec(v.c.vsctlCmd, "--if-exists", "del-port", bridge, port)
	return err
}

// SetController sets the OpenFlow controller address(es) for bridge.
func (v *VSwitchService) SetController(bridge string, address string) error {
	_, err := v.c.exec(v.c.vsctlCmd, "set-controller", bridge, address)
	return err
}

// GetController retrieves the OpenFlow controller address configured for
// bridge.
func (v *VSwitchService) GetController(bridge string) (string, error) {
	out, err := v.c.exec(v.c.vsctlCmd, "get-controller", bridge)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(out)), nil
}

// ListPorts returns the names of every port attached to bridge.
func (v *VSwitchService) ListPorts(bridge string) ([]string, error) {
	out, err := v.c.exec(v.c.vsctlCmd, "list-ports", bridge)
	if err != nil {
		return nil, err
	}

	return splitLines(out), nil
}

// ListBridges returns the names of every bridge managed by this switch.
func (v *VSwitchService) ListBridges() ([]string, error) {
	out, err := v.c.exec(v.c.vsctlCmd, "list-br")
	if err != nil {
		return nil, err
	}

	return splitLines(out), nil
}

// PortToBridge returns the name of the bridge to which port is attached.
func (v *VSwitchService) PortToBridge(port string) (string, error) {
	out, err := v.c.exec(v.c.vsctlCmd, "port-to-br", port)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(out)), nil
}

// GetFailMode retrieves the configured FailMode for bridge.
func (v *VSwitchService) GetFailMode(bridge string) (string, error) {
	out, err := v.c.exec(v.c.vsctlCmd, "get-fail-mode", bridge)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(out)), nil
}

// SetFailMode configures the FailMode for bridge.
func (v *VSwitchService) SetFailMode(bridge string, mode FailMode) error {
	_, err := v.c.exec(v.c.vsctlCmd, "set-fail-mode", bridge, string(mode))
	return err
}

// splitLines splits ovs-vsctl's newline-delimited list output into a slice
// of non-empty, trimmed lines.
func splitLines(b []byte) []string {
	var out []string
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}

	return out
}
