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

// errNoBuckets is returned when a Group has no Buckets, which ovs-ofctl
// rejects for group type "all".
var errNoBuckets = errors.New("group must have one or more buckets")

// GroupType identifies the semantics of a Group's bucket fan-out. This
// fork only emits type ALL groups, used to flood a packet to every other
// member of a slice.
type GroupType string

// GroupType values recognized by ovs-ofctl add-group.
const (
	GroupTypeAll GroupType = "all"
)

// A Bucket is one fan-out target within a Group; its Actions run whenever
// the group is selected.
type Bucket struct {
	Actions []Action
}

// marshalText renders a single bucket's action list.
func (b Bucket) marshalText() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("bucket=actions=")

	for i, a := range b.Actions {
		if i > 0 {
			buf.WriteByte(',')
		}

		ab, err := a.MarshalText()
		if err != nil {
			return nil, err
		}
		buf.Write(ab)
	}

	return buf.Bytes(), nil
}

// A Group is an OpenFlow group table entry, understood by ovs-ofctl
// add-group/mod-group/del-groups.
type Group struct {
	ID      uint32
	Type    GroupType
	Buckets []Bucket
}

// MarshalText marshals a Group to the textual form expected by ovs-ofctl
// add-group.
func (g *Group) MarshalText() ([]byte, error) {
	if len(g.Buckets) == 0 {
		return nil, errNoBuckets
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "group_id=%d,type=%s", g.ID, g.Type)

	for _, b := range g.Buckets {
		bb, err := b.marshalText()
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(bb)
	}

	return buf.Bytes(), nil
}

// GroupService provides access to ovs-ofctl group table commands.
type GroupService struct {
	c *Client
}

// AddGroup installs or replaces a group on bridge.
func (s *GroupService) AddGroup(bridge string, g *Group) error {
	spec, err := g.MarshalText()
	if err != nil {
		return err
	}

	_, err = s.c.exec(s.c.ofctlCmd, s.c.ofctlArgs("add-group", bridge, string(spec))...)
	return err
}

// ModGroup replaces the buckets of an existing group on bridge.
func (s *GroupService) ModGroup(bridge string, g *Group) error {
	spec, err := g.MarshalText()
	if err != nil {
		return err
	}

	_, err = s.c.exec(s.c.ofctlCmd, s.c.ofctlArgs("mod-group", bridge, string(spec))...)
	return err
}

// DelGroups removes the group identified by id from bridge.
func (s *GroupService) DelGroups(bridge string, id uint32) error {
	_, err := s.c.exec(s.c.ofctlCmd, s.c.ofctlArgs("del-groups", bridge, fmt.Sprintf("group_id=%d", id))...)
	return err
}
