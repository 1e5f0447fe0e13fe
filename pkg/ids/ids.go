// Package ids generates unique identifiers for order references and write
// manifest steps.
package ids

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	once sync.Once
	node *snowflake.Node
)

// Init sets the snowflake node id. Safe to call more than once; only the
// first call wins.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// Next returns a new id in base58, short enough for log lines and URLs.
func Next() string {
	once.Do(func() {
		node, _ = snowflake.NewNode(1)
	})
	return node.Generate().Base58()
}
