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
	"fmt"
	"os/exec"
)

// ExecFunc is a function which can execute a command and return its
// combined output and any error encountered.
type ExecFunc func(cmd string, args ...string) ([]byte, error)

// A Client is a client for Open vSwitch, and can be used to call ovs-vsctl,
// ovs-ofctl, and related command-line tools.
type Client struct {
	// VSwitch provides access to methods which interact with ovs-vsctl.
	VSwitch *VSwitchService

	// OpenFlow provides access to methods which interact with ovs-ofctl.
	OpenFlow *OpenFlowService

	flags      []string
	ofctlFlags []string
	debug      bool
	sudo       bool

	ofctlCmd string
	vsctlCmd string

	run ExecFunc
}

// An OptionFunc is a function which adjusts the configuration of a Client.
type OptionFunc func(c *Client) error

// New creates a new Client with options set by OptionFuncs.
func New(options ...OptionFunc) *Client {
	c := &Client{
		flags:      make([]string, 0),
		ofctlFlags: make([]string, 0),
		ofctlCmd:   "ovs-ofctl",
		vsctlCmd:   "ovs-vsctl",
		run:        shellExec,
	}

	for _, o := range options {
		// Option functions provided by this package never return an
		// error, but custom ones could.
		_ = o(c)
	}

	c.VSwitch = &VSwitchService{c: c}
	c.OpenFlow = &OpenFlowService{
		c:     c,
		Group: &GroupService{c: c},
		Meter: &MeterService{c: c},
	}

	return c
}

// Timeout specifies a timeout in seconds before ovs-vsctl/ovs-ofctl commands
// are aborted.
func Timeout(seconds int) OptionFunc {
	return func(c *Client) error {
		c.flags = append(c.flags, fmt.Sprintf("--timeout=%d", seconds))
		return nil
	}
}

// Debug enables debug logging of commands sent to ovs-vsctl/ovs-ofctl.
func Debug(enable bool) OptionFunc {
	return func(c *Client) error {
		c.debug = enable
		return nil
	}
}

// Sudo instructs the Client to prepend 'sudo' to all commands, as may be
// necessary in some environments (e.g. rootless containers).
func Sudo() OptionFunc {
	return func(c *Client) error {
		c.sudo = true
		return nil
	}
}

// OFCTLPath overrides the ovs-ofctl binary invoked by OpenFlowService,
// for hosts where it isn't on PATH under its default name.
func OFCTLPath(path string) OptionFunc {
	return func(c *Client) error {
		c.ofctlCmd = path
		return nil
	}
}

// VSCTLPath overrides the ovs-vsctl binary invoked by VSwitchService, for
// hosts where it isn't on PATH under its default name.
func VSCTLPath(path string) OptionFunc {
	return func(c *Client) error {
		c.vsctlCmd = path
		return nil
	}
}

// FlowFormat sets the flow format used by ovs-ofctl commands.
func FlowFormat(format string) OptionFunc {
	return func(c *Client) error {
		c.ofctlFlags = append(c.ofctlFlags, "--flow-format="+format)
		return nil
	}
}

// Protocols sets the OpenFlow protocol versions accepted by ovs-ofctl
// commands.
func Protocols(protocols []string) OptionFunc {
	return func(c *Client) error {
		c.ofctlFlags = append(c.ofctlFlags, "--protocols="+joinComma(protocols))
		return nil
	}
}

// SetSSLParam configures ovs-ofctl to use the specified SSL key material;
// ovs-vsctl invocations are not given these flags.
func SetSSLParam(privKey, cert, caCert string) OptionFunc {
	return func(c *Client) error {
		c.ofctlFlags = append(c.ofctlFlags,
			"--private-key="+privKey,
			"--certificate="+cert,
			"--ca-cert="+caCert,
		)
		return nil
	}
}

// SetTCPParam configures ovs-vsctl to address a remote OVSDB over TCP.
func SetTCPParam(addr string) OptionFunc {
	return func(c *Client) error {
		c.flags = append(c.flags, "--db=tcp:"+addr)
		return nil
	}
}

// Exec overrides the function used to execute commands; used in tests.
func Exec(fn ExecFunc) OptionFunc {
	return func(c *Client) error {
		c.run = fn
		return nil
	}
}

// FlowFormat constants recognized by ovs-ofctl.
const (
	FlowFormatNXMTableID = "NXM+table_id"
)

// Protocol version strings recognized by ovs-ofctl --protocols.
const (
	ProtocolOpenFlow10 = "OpenFlow10"
	ProtocolOpenFlow13 = "OpenFlow13"
	ProtocolOpenFlow14 = "OpenFlow14"
)

func joinComma(ss []string) string {
	var buf bytes.Buffer
	for i, s := range ss {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(s)
	}
	return buf.String()
}

// exec invokes the named OVS command-line tool (e.g. "ovs-vsctl") with the
// client's persistent flags prepended to args.
func (c *Client) exec(cmd string, args ...string) ([]byte, error) {
	full := make([]string, 0, len(c.flags)+len(args))
	full = append(full, c.flags...)
	full = append(full, args...)

	if c.sudo {
		full = append([]string{cmd}, full...)
		cmd = "sudo"
	}

	run := c.run
	if run == nil {
		run = shellExec
	}

	out, err := run(cmd, full...)
	if err != nil {
		return out, &Error{Out: out, Err: err}
	}

	return out, nil
}

// ofctlArgs prepends the client's ofctl-only flags to args, without
// aliasing the client's underlying slice.
func (c *Client) ofctlArgs(args ...string) []string {
	full := make([]string, 0, len(c.ofctlFlags)+len(args))
	full = append(full, c.ofctlFlags...)
	full = append(full, args...)
	return full
}

// shellExec is the default ExecFunc, invoking the real binary on PATH.
func shellExec(cmd string, args ...string) ([]byte, error) {
	return exec.Command(cmd, args...).CombinedOutput()
}

// shellPipe pipes the contents of r to the standard input of cmd, and
// returns its combined output.
func shellPipe(r *bytes.Buffer, cmd string, args ...string) ([]byte, error) {
	c := exec.Command(cmd, args...)
	c.Stdin = r

	return c.CombinedOutput()
}
