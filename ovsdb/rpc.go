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

package ovsdb

import (
	"context"
	"fmt"
)

// ListDatabases returns the name of all databases known to the OVSDB server.
func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	var dbs []string
	if err := c.rpc(ctx, "list_dbs", &dbs); err != nil {
		return nil, err
	}

	return dbs, nil
}

// echoParam identifies this client in "echo" RPCs, mirroring the OVSDB
// convention of echoing back an arbitrary client-chosen token.
const echoParam = "github.com/ovslicer/ovslicer/ovsdb"

// Echo verifies that the OVSDB connection is still alive. The server is
// expected to echo back the exact parameters it was sent.
func (c *Client) Echo(ctx context.Context) error {
	var reply []string
	if err := c.rpc(ctx, "echo", &reply, echoParam); err != nil {
		return err
	}

	if len(reply) != 1 || reply[0] != echoParam {
		return fmt.Errorf("ovsdb: unexpected echo reply: %v", reply)
	}

	return nil
}
