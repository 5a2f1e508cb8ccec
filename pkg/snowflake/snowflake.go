package snowflake

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	once sync.Once
	node *snowflake.Node
)

// Init sets the node number; the first call wins. GenID falls back to node 1.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

func GenID() int64 {
	_ = Init(1)
	if node == nil {
		panic("snowflake: invalid node id")
	}
	return node.Generate().Int64()
}
