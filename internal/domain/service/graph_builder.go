package service

import (
	"time"

	"eoa-transfer-analyzer/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// GraphBuilder reshapes partner and transaction data into the node/link,
// tree, and time-grid structures the visualization layer consumes. These
// are thin aggregation passes; no new analysis happens here.
type GraphBuilder struct{}

// NewGraphBuilder creates a new graph builder
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{}
}

// BuildTransferGraph produces the bubble-map node/link structure centered
// on the analyzed address
func (g *GraphBuilder) BuildTransferGraph(address string, partners []*entity.TransferPartner) entity.TransferGraph {
	graph := entity.TransferGraph{
		Nodes: []entity.GraphNode{},
		Links: []entity.GraphLink{},
	}

	center := entity.GraphNode{
		ID:       address,
		Label:    shortAddress(address),
		Volume:   decimal.Zero,
		IsCenter: true,
	}

	for _, p := range partners {
		center.Volume = center.Volume.Add(p.TotalVolume())
		center.TxCount += len(p.Transactions)

		node := entity.GraphNode{
			ID:      p.Address,
			Label:   shortAddress(p.Address),
			Volume:  p.TotalVolume(),
			TxCount: len(p.Transactions),
			Flagged: p.Anomalies.HasAnomalies(),
		}
		node.FirstSeen, node.LastSeen = seenRange(p.Transactions)
		graph.Nodes = append(graph.Nodes, node)

		if p.TotalSent.IsPositive() {
			graph.Links = append(graph.Links, entity.GraphLink{
				Source:    address,
				Target:    p.Address,
				Value:     p.TotalSent,
				TxCount:   directionCount(p.Transactions, entity.DirectionSent),
				Direction: entity.DirectionSent,
			})
		}
		if p.TotalReceived.IsPositive() {
			graph.Links = append(graph.Links, entity.GraphLink{
				Source:    p.Address,
				Target:    address,
				Value:     p.TotalReceived,
				TxCount:   directionCount(p.Transactions, entity.DirectionReceived),
				Direction: entity.DirectionReceived,
			})
		}
	}

	graph.Nodes = append([]entity.GraphNode{center}, graph.Nodes...)
	return graph
}

// BuildPartnerTree nests partners under volume tiers for the tree-map
// view. Tier boundaries are relative to the largest partner of the
// current sample.
func (g *GraphBuilder) BuildPartnerTree(address string, partners []*entity.TransferPartner) entity.TreeNode {
	root := entity.TreeNode{
		Name:  shortAddress(address),
		Value: decimal.Zero,
	}
	if len(partners) == 0 {
		return root
	}

	top := partners[0].TotalVolume()
	for _, p := range partners {
		if p.TotalVolume().GreaterThan(top) {
			top = p.TotalVolume()
		}
	}

	tiers := []struct {
		name  string
		floor decimal.Decimal
	}{
		{"High volume", top.Mul(decimal.NewFromFloat(0.5))},
		{"Medium volume", top.Mul(decimal.NewFromFloat(0.1))},
		{"Low volume", decimal.Zero},
	}

	children := make([]entity.TreeNode, len(tiers))
	for i, tier := range tiers {
		children[i] = entity.TreeNode{Name: tier.name, Value: decimal.Zero}
	}

	for _, p := range partners {
		volume := p.TotalVolume()
		for i, tier := range tiers {
			if volume.GreaterThanOrEqual(tier.floor) && (i == 0 || volume.LessThan(tiers[i-1].floor)) {
				children[i].Children = append(children[i].Children, entity.TreeNode{
					Name:    shortAddress(p.Address),
					Address: p.Address,
					Value:   volume,
				})
				children[i].Value = children[i].Value.Add(volume)
				break
			}
		}
		root.Value = root.Value.Add(volume)
	}

	for _, tier := range children {
		if len(tier.Children) > 0 {
			root.Children = append(root.Children, tier)
		}
	}
	return root
}

// BuildActivityGrid buckets timestamped records into a 7x24 weekday-hour
// grid for the heatmap view
func (g *GraphBuilder) BuildActivityGrid(records []entity.TransferRecord) entity.ActivityGrid {
	counts := [7][24]int{}
	total := 0
	for _, r := range records {
		if r.Timestamp == nil {
			continue
		}
		t := r.Timestamp.UTC()
		counts[int(t.Weekday())][t.Hour()]++
		total++
	}

	grid := entity.ActivityGrid{
		Cells: make([]entity.ActivityCell, 0, 7*24),
		Total: total,
	}
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			grid.Cells = append(grid.Cells, entity.ActivityCell{
				Weekday: day,
				Hour:    hour,
				Count:   counts[day][hour],
			})
		}
	}
	return grid
}

func shortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "…" + address[len(address)-4:]
}

func directionCount(records []entity.TransferRecord, direction entity.Direction) int {
	count := 0
	for _, r := range records {
		if r.Direction == direction {
			count++
		}
	}
	return count
}

// seenRange returns the first and last timestamps of a record set;
// recordTimes already sorts ascending
func seenRange(records []entity.TransferRecord) (first, last *time.Time) {
	times := recordTimes(records)
	if len(times) == 0 {
		return nil, nil
	}
	f, l := times[0], times[len(times)-1]
	return &f, &l
}
