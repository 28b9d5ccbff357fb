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

// ErrInvalidTable is returned when input from 'ovs-ofctl dump-tables' cannot
// be parsed as a Table.
var ErrInvalidTable = errors.New("invalid table")

// A Table contains statistics about a single OpenFlow flow table, as
// reported by 'ovs-ofctl dump-tables'.
type Table struct {
	ID      int
	Name    string
	Wild    string
	Max     uint64
	Active  uint64
	Lookup  uint64
	Matched uint64
}

// UnmarshalText unmarshals a Table from textual form as output by
// 'ovs-ofctl dump-tables <bridge>':
//   0: classifier: wild=0x3fffff, max=1000000, active=0
//                  lookup=0, matched=0
func (t *Table) UnmarshalText(b []byte) error {
	// ovs-ofctl wraps a table's stats onto a second line with no comma of
	// its own; treat the line break as an implicit comma before
	// collapsing all other whitespace.
	trimmed := strings.TrimSpace(string(b))
	s := strings.Join(strings.Fields(strings.ReplaceAll(trimmed, "\n", " , ")), " ")

	head := strings.SplitN(s, ":", 3)
	if len(head) != 3 {
		return ErrInvalidTable
	}

	id, err := strconv.ParseInt(strings.TrimSpace(head[0]), 10, 32)
	if err != nil {
		return err
	}
	t.ID = int(id)
	t.Name = strings.TrimSpace(head[1])

	fields := strings.Split(head[2], ",")
	if len(fields) != 5 {
		return ErrInvalidTable
	}

	vals := make(map[string]string, 5)
	for _, f := range fields {
		kv := strings.SplitN(strings.TrimSpace(f), "=", 2)
		if len(kv) != 2 {
			return ErrInvalidTable
		}
		vals[kv[0]] = kv[1]
	}

	wild, ok := vals["wild"]
	if !ok {
		return ErrInvalidTable
	}
	t.Wild = wild

	parseField := func(key string) (uint64, error) {
		v, ok := vals[key]
		if !ok {
			return 0, ErrInvalidTable
		}
		return strconv.ParseUint(v, 10, 64)
	}

	if t.Max, err = parseField("max"); err != nil {
		return err
	}
	if t.Active, err = parseField("active"); err != nil {
		return err
	}
	if t.Lookup, err = parseField("lookup"); err != nil {
		return err
	}
	if t.Matched, err = parseField("matched"); err != nil {
		return err
	}

	return nil
}
