package utilities

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IDGenerator hands out snowflake IDs from a single node. A node must be
// shared between callers, otherwise IDs generated in the same millisecond collide.
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator builds a generator for the node ID in SNOWFLAKE_NODE,
// defaulting to node 1 when unset or invalid.
func NewIDGenerator() *IDGenerator {
	nodeID := int64(1)
	if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			nodeID = n
		}
	}
	return NewIDGeneratorWithNode(nodeID)
}

// NewIDGeneratorWithNode builds a generator for the provided node ID.
// If the node cannot be initialized, Next falls back to KSUID strings.
func NewIDGeneratorWithNode(nodeID int64) *IDGenerator {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return &IDGenerator{}
	}
	return &IDGenerator{node: node}
}

// Next returns a new unique ID string.
func (g *IDGenerator) Next() string {
	if g == nil || g.node == nil {
		return NewKSUID()
	}
	return g.node.Generate().String()
}
