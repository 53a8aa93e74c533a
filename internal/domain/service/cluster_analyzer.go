package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"eoa-transfer-analyzer/internal/domain/entity"
)

// ClusterThresholds are the tunable heuristic knobs of identity
// clustering. The exact values are configuration, not protocol; results
// are probabilistic hints.
type ClusterThresholds struct {
	// TemporalWindow is the max spacing between two partners' transfers
	// for the pair to count as co-occurring
	TemporalWindow time.Duration
	// MinCoOccurrences is the co-occurrence count that links a pair
	MinCoOccurrences int
	// MinSharedBlocks is the number of shared receipt blocks that counts
	// as co-spending
	MinSharedBlocks int
	// BehaviorSimilarity is the profile similarity (0-1) that links a pair
	BehaviorSimilarity float64
}

// DefaultClusterThresholds returns the standard clustering configuration
func DefaultClusterThresholds() ClusterThresholds {
	return ClusterThresholds{
		TemporalWindow:     time.Hour,
		MinCoOccurrences:   3,
		MinSharedBlocks:    2,
		BehaviorSimilarity: 0.8,
	}
}

// unionFind is a weighted union-find with path compression over partner
// addresses
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

func (u *unionFind) find(addr string) string {
	if _, ok := u.parent[addr]; !ok {
		u.parent[addr] = addr
	}
	if u.parent[addr] != addr {
		u.parent[addr] = u.find(u.parent[addr])
	}
	return u.parent[addr]
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}

// pairEvidence records why two partners were linked
type pairEvidence struct {
	kind     entity.ClusterType
	strength float64
	reason   string
}

// ClusterAnalyzer groups partner addresses into probable-same-owner
// clusters using temporal, co-spending, and behavioral heuristics
type ClusterAnalyzer struct {
	thresholds ClusterThresholds
}

// NewClusterAnalyzer creates a cluster analyzer with the given thresholds
func NewClusterAnalyzer(thresholds ClusterThresholds) *ClusterAnalyzer {
	return &ClusterAnalyzer{thresholds: thresholds}
}

// Analyze builds clusters over the partner set and scores each one.
// Fewer than two partners always yields an empty result.
func (c *ClusterAnalyzer) Analyze(partners []*entity.TransferPartner) entity.ClusterAnalysis {
	analysis := entity.ClusterAnalysis{
		Clusters: []entity.Cluster{},
		Risks:    []entity.ClusterRisk{},
	}
	if len(partners) < 2 {
		return analysis
	}

	uf := newUnionFind()
	evidence := make(map[string][]pairEvidence)

	link := func(a, b string, ev pairEvidence) {
		uf.union(a, b)
		evidence[a] = append(evidence[a], ev)
		evidence[b] = append(evidence[b], ev)
	}

	for i := 0; i < len(partners); i++ {
		for j := i + 1; j < len(partners); j++ {
			pi, pj := partners[i], partners[j]

			if ev, ok := c.temporalEvidence(pi, pj); ok {
				link(pi.Address, pj.Address, ev)
			}
			if ev, ok := c.coSpendEvidence(pi, pj); ok {
				link(pi.Address, pj.Address, ev)
			}
			if ev, ok := c.behavioralEvidence(pi, pj); ok {
				link(pi.Address, pj.Address, ev)
			}
		}
	}

	analysis.Clusters = c.collectClusters(partners, uf, evidence)
	for _, cluster := range analysis.Clusters {
		analysis.Risks = append(analysis.Risks, scoreClusterRisk(cluster, partners))
	}
	return analysis
}

// temporalEvidence counts transfers of the two partners landing within
// the configured window of each other
func (c *ClusterAnalyzer) temporalEvidence(a, b *entity.TransferPartner) (pairEvidence, bool) {
	ta := recordTimes(a.Transactions)
	tb := recordTimes(b.Transactions)
	if len(ta) == 0 || len(tb) == 0 {
		return pairEvidence{}, false
	}

	window := c.thresholds.TemporalWindow
	coOccur := 0
	j := 0
	for _, t := range ta {
		for j < len(tb) && tb[j].Before(t.Add(-window)) {
			j++
		}
		if j < len(tb) && !tb[j].After(t.Add(window)) {
			coOccur++
		}
	}

	if coOccur < c.thresholds.MinCoOccurrences {
		return pairEvidence{}, false
	}
	return pairEvidence{
		kind:     entity.ClusterTemporal,
		strength: math.Min(90, 30+10*float64(coOccur)),
		reason:   fmt.Sprintf("%s and %s were active within %s of each other %d times", a.Address, b.Address, window, coOccur),
	}, true
}

// coSpendEvidence counts blocks in which both partners received funds
// from the analyzed address
func (c *ClusterAnalyzer) coSpendEvidence(a, b *entity.TransferPartner) (pairEvidence, bool) {
	blocksA := sentBlocks(a)
	if len(blocksA) == 0 {
		return pairEvidence{}, false
	}

	shared := 0
	for block := range sentBlocks(b) {
		if blocksA[block] {
			shared++
		}
	}

	if shared < c.thresholds.MinSharedBlocks {
		return pairEvidence{}, false
	}
	return pairEvidence{
		kind:     entity.ClusterCoSpending,
		strength: math.Min(90, 40+15*float64(shared)),
		reason:   fmt.Sprintf("%s and %s received outgoing funds in %d of the same blocks", a.Address, b.Address, shared),
	}, true
}

// behavioralEvidence compares the two partners' value, volume, and
// direction-mix profiles
func (c *ClusterAnalyzer) behavioralEvidence(a, b *entity.TransferPartner) (pairEvidence, bool) {
	if len(a.Transactions) < 2 || len(b.Transactions) < 2 {
		return pairEvidence{}, false
	}

	avgA := Mean(recordValues(a.Transactions))
	avgB := Mean(recordValues(b.Transactions))
	countA := float64(len(a.Transactions))
	countB := float64(len(b.Transactions))

	similarity := (ratioSimilarity(avgA, avgB) +
		ratioSimilarity(countA, countB) +
		1 - math.Abs(sentShare(a)-sentShare(b))) / 3

	if similarity < c.thresholds.BehaviorSimilarity {
		return pairEvidence{}, false
	}
	return pairEvidence{
		kind:     entity.ClusterBehavioral,
		strength: math.Min(85, similarity*100),
		reason:   fmt.Sprintf("%s and %s show %.0f%% similar transfer profiles", a.Address, b.Address, similarity*100),
	}, true
}

func (c *ClusterAnalyzer) collectClusters(partners []*entity.TransferPartner,
	uf *unionFind, evidence map[string][]pairEvidence) []entity.Cluster {

	groups := make(map[string][]string)
	for _, p := range partners {
		root := uf.find(p.Address)
		groups[root] = append(groups[root], p.Address)
	}

	roots := make([]string, 0, len(groups))
	for root, members := range groups {
		if len(members) >= 2 {
			roots = append(roots, root)
		}
	}
	sort.Strings(roots)

	clusters := make([]entity.Cluster, 0, len(roots))
	for i, root := range roots {
		members := groups[root]
		sort.Strings(members)

		kindCounts := make(map[entity.ClusterType]int)
		reasonSet := make(map[string]struct{})
		reasons := []string{}
		clusterMembers := make([]entity.ClusterMember, 0, len(members))
		total := 0.0

		for _, addr := range members {
			best := 0.0
			for _, ev := range evidence[addr] {
				kindCounts[ev.kind]++
				if _, seen := reasonSet[ev.reason]; !seen {
					reasonSet[ev.reason] = struct{}{}
					reasons = append(reasons, ev.reason)
				}
				if ev.strength > best {
					best = ev.strength
				}
			}
			total += best
			clusterMembers = append(clusterMembers, entity.ClusterMember{
				Address:    addr,
				Confidence: best,
			})
		}

		clusters = append(clusters, entity.Cluster{
			ID:         fmt.Sprintf("cluster-%d", i+1),
			Name:       fmt.Sprintf("Cluster %d (%d addresses)", i+1, len(members)),
			Type:       dominantKind(kindCounts),
			Confidence: total / float64(len(members)),
			Addresses:  clusterMembers,
			Reasons:    reasons,
		})
	}

	return clusters
}

// dominantKind picks the evidence family that drove most links; mixed
// evidence degrades to the generic heuristic type
func dominantKind(counts map[entity.ClusterType]int) entity.ClusterType {
	best := entity.ClusterHeuristic
	bestCount := 0
	tied := false
	for kind, count := range counts {
		if count > bestCount {
			best, bestCount, tied = kind, count, false
		} else if count == bestCount && kind != best {
			tied = true
		}
	}
	if tied || bestCount == 0 {
		return entity.ClusterHeuristic
	}
	return best
}

// scoreClusterRisk scores one cluster given the full partner list
func scoreClusterRisk(cluster entity.Cluster, partners []*entity.TransferPartner) entity.ClusterRisk {
	byAddr := make(map[string]*entity.TransferPartner, len(partners))
	for _, p := range partners {
		byAddr[p.Address] = p
	}

	score := 30.0 + 5*float64(len(cluster.Addresses))
	factors := []string{fmt.Sprintf("Cluster spans %d addresses", len(cluster.Addresses))}

	anomalous := 0
	for _, m := range cluster.Addresses {
		if p, ok := byAddr[m.Address]; ok && p.Anomalies.HasAnomalies() {
			anomalous++
		}
	}
	if anomalous > 0 {
		score += 15 * float64(anomalous)
		factors = append(factors, fmt.Sprintf("%d clustered address(es) carry anomaly flags", anomalous))
	}

	if cluster.Confidence >= 70 {
		score += 10
		factors = append(factors, "Strong linking evidence across the cluster")
	}

	if score > 100 {
		score = 100
	}

	return entity.ClusterRisk{
		ClusterID: cluster.ID,
		Level:     riskBand(score),
		Score:     score,
		Factors:   factors,
	}
}

func sentBlocks(p *entity.TransferPartner) map[string]bool {
	blocks := make(map[string]bool)
	for _, tx := range p.Transactions {
		if tx.Direction == entity.DirectionSent && tx.BlockNum != "" {
			blocks[tx.BlockNum] = true
		}
	}
	return blocks
}

func sentShare(p *entity.TransferPartner) float64 {
	if len(p.Transactions) == 0 {
		return 0
	}
	sent := 0
	for _, tx := range p.Transactions {
		if tx.Direction == entity.DirectionSent {
			sent++
		}
	}
	return float64(sent) / float64(len(p.Transactions))
}

func ratioSimilarity(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > b {
		a, b = b, a
	}
	return a / b
}
