package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// GraphNode is one node of the transfer graph handed to visualization
// consumers. Consumers must treat the graph as a read-only snapshot.
type GraphNode struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Volume    decimal.Decimal `json:"volume"`
	TxCount   int             `json:"tx_count"`
	IsCenter  bool            `json:"is_center"`
	Flagged   bool            `json:"flagged"`
	Category  string          `json:"category,omitempty"`
	FirstSeen *time.Time      `json:"first_seen,omitempty"`
	LastSeen  *time.Time      `json:"last_seen,omitempty"`
}

// GraphLink is one directed edge of the transfer graph
type GraphLink struct {
	Source    string          `json:"source"`
	Target    string          `json:"target"`
	Value     decimal.Decimal `json:"value"`
	TxCount   int             `json:"tx_count"`
	Direction Direction       `json:"direction"`
}

// TransferGraph is the node/link structure for the bubble map view
type TransferGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// TreeNode is one level of the nested volume-tier tree for the tree map
// view. Leaves carry a partner address, inner nodes only aggregate.
type TreeNode struct {
	Name     string          `json:"name"`
	Address  string          `json:"address,omitempty"`
	Value    decimal.Decimal `json:"value"`
	Children []TreeNode      `json:"children,omitempty"`
}

// ActivityCell is one weekday-by-hour bucket of the activity heatmap grid
type ActivityCell struct {
	Weekday int `json:"weekday"`
	Hour    int `json:"hour"`
	Count   int `json:"count"`
}

// ActivityGrid is the time-bucketed activity structure. Cells with zero
// count are included so the grid is always 7x24.
type ActivityGrid struct {
	Cells []ActivityCell `json:"cells"`
	Total int            `json:"total"`
}
