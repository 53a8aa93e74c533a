package service

import (
	"testing"
	"time"

	"eoa-transfer-analyzer/internal/domain/entity"
)

func testPartner(addr string, txs ...entity.TransferRecord) *entity.TransferPartner {
	return &entity.TransferPartner{
		Address:      addr,
		Transactions: txs,
	}
}

func blockRecord(hash, block string, direction entity.Direction, value float64) entity.TransferRecord {
	r := txRecord(hash, value, direction, "0xcenter", nil)
	r.BlockNum = block
	return r
}

func TestClusterAnalyzeTooFewPartners(t *testing.T) {
	analyzer := NewClusterAnalyzer(DefaultClusterThresholds())

	analysis := analyzer.Analyze([]*entity.TransferPartner{testPartner("0xa")})

	if len(analysis.Clusters) != 0 || len(analysis.Risks) != 0 {
		t.Errorf("single partner produced %d clusters, want 0", len(analysis.Clusters))
	}
	if analysis.Clusters == nil || analysis.Risks == nil {
		t.Error("slices should be empty, not nil")
	}
}

func TestTemporalEvidence(t *testing.T) {
	analyzer := NewClusterAnalyzer(DefaultClusterThresholds())

	a := testPartner("0xa",
		txRecord("0x1", 1, entity.DirectionSent, "0xa", at(0)),
		txRecord("0x2", 1, entity.DirectionSent, "0xa", at(2*time.Hour)),
		txRecord("0x3", 1, entity.DirectionSent, "0xa", at(4*time.Hour)),
	)
	b := testPartner("0xb",
		txRecord("0x4", 1, entity.DirectionSent, "0xb", at(10*time.Minute)),
		txRecord("0x5", 1, entity.DirectionSent, "0xb", at(2*time.Hour+10*time.Minute)),
		txRecord("0x6", 1, entity.DirectionSent, "0xb", at(4*time.Hour+10*time.Minute)),
	)

	ev, ok := analyzer.temporalEvidence(a, b)
	if !ok {
		t.Fatal("three co-occurrences within the window not linked")
	}
	if ev.kind != entity.ClusterTemporal {
		t.Errorf("kind = %s, want temporal", ev.kind)
	}
	// 30 + 10 per co-occurrence
	if !almostEqual(ev.strength, 60, 1e-9) {
		t.Errorf("strength = %v, want 60", ev.strength)
	}

	far := testPartner("0xc",
		txRecord("0x7", 1, entity.DirectionSent, "0xc", at(100*time.Hour)),
		txRecord("0x8", 1, entity.DirectionSent, "0xc", at(200*time.Hour)),
		txRecord("0x9", 1, entity.DirectionSent, "0xc", at(300*time.Hour)),
	)
	if _, ok := analyzer.temporalEvidence(a, far); ok {
		t.Error("distant activity linked temporally")
	}

	bare := testPartner("0xd", txRecord("0xa1", 1, entity.DirectionSent, "0xd", nil))
	if _, ok := analyzer.temporalEvidence(a, bare); ok {
		t.Error("untimestamped partner linked temporally")
	}
}

func TestCoSpendEvidence(t *testing.T) {
	analyzer := NewClusterAnalyzer(DefaultClusterThresholds())

	a := testPartner("0xa",
		blockRecord("0x1", "0x100", entity.DirectionSent, 1),
		blockRecord("0x2", "0x200", entity.DirectionSent, 1),
		blockRecord("0x3", "0x300", entity.DirectionSent, 1),
	)
	b := testPartner("0xb",
		blockRecord("0x4", "0x100", entity.DirectionSent, 1),
		blockRecord("0x5", "0x200", entity.DirectionSent, 1),
	)

	ev, ok := analyzer.coSpendEvidence(a, b)
	if !ok {
		t.Fatal("two shared blocks not linked")
	}
	if ev.kind != entity.ClusterCoSpending {
		t.Errorf("kind = %s, want co-spending", ev.kind)
	}
	// 40 + 15 per shared block
	if !almostEqual(ev.strength, 70, 1e-9) {
		t.Errorf("strength = %v, want 70", ev.strength)
	}

	t.Run("received transfers do not count", func(t *testing.T) {
		c := testPartner("0xc",
			blockRecord("0x6", "0x100", entity.DirectionReceived, 1),
			blockRecord("0x7", "0x200", entity.DirectionReceived, 1),
		)
		if _, ok := analyzer.coSpendEvidence(a, c); ok {
			t.Error("inbound blocks counted as co-spending")
		}
	})

	t.Run("one shared block is below the minimum", func(t *testing.T) {
		d := testPartner("0xd", blockRecord("0x8", "0x100", entity.DirectionSent, 1))
		if _, ok := analyzer.coSpendEvidence(a, d); ok {
			t.Error("single shared block linked")
		}
	})
}

func TestBehavioralEvidence(t *testing.T) {
	analyzer := NewClusterAnalyzer(DefaultClusterThresholds())

	a := testPartner("0xa",
		txRecord("0x1", 10, entity.DirectionSent, "0xa", nil),
		txRecord("0x2", 10, entity.DirectionSent, "0xa", nil),
		txRecord("0x3", 10, entity.DirectionSent, "0xa", nil),
	)
	twin := testPartner("0xb",
		txRecord("0x4", 10, entity.DirectionSent, "0xb", nil),
		txRecord("0x5", 10, entity.DirectionSent, "0xb", nil),
		txRecord("0x6", 10, entity.DirectionSent, "0xb", nil),
	)

	ev, ok := analyzer.behavioralEvidence(a, twin)
	if !ok {
		t.Fatal("identical profiles not linked")
	}
	if ev.kind != entity.ClusterBehavioral {
		t.Errorf("kind = %s, want behavioral", ev.kind)
	}
	// Perfect similarity caps at 85
	if !almostEqual(ev.strength, 85, 1e-9) {
		t.Errorf("strength = %v, want 85", ev.strength)
	}

	t.Run("dissimilar profiles stay apart", func(t *testing.T) {
		whale := testPartner("0xc",
			txRecord("0x7", 5000, entity.DirectionReceived, "0xc", nil),
			txRecord("0x8", 9000, entity.DirectionReceived, "0xc", nil),
		)
		if _, ok := analyzer.behavioralEvidence(a, whale); ok {
			t.Error("opposite profiles linked behaviorally")
		}
	})

	t.Run("single-transfer histories are skipped", func(t *testing.T) {
		thin := testPartner("0xd", txRecord("0x9", 10, entity.DirectionSent, "0xd", nil))
		if _, ok := analyzer.behavioralEvidence(a, thin); ok {
			t.Error("one-transfer partner linked behaviorally")
		}
	})
}

func TestClusterAnalyzeGroups(t *testing.T) {
	analyzer := NewClusterAnalyzer(DefaultClusterThresholds())

	// a and b co-occur temporally; c is unrelated on every heuristic
	a := testPartner("0xa",
		txRecord("0x1", 1, entity.DirectionSent, "0xa", at(0)),
		txRecord("0x2", 1, entity.DirectionSent, "0xa", at(2*time.Hour)),
		txRecord("0x3", 1, entity.DirectionSent, "0xa", at(4*time.Hour)),
	)
	// b's values diverge enough that only the temporal heuristic links it
	// to a
	b := testPartner("0xb",
		txRecord("0x4", 100, entity.DirectionSent, "0xb", at(10*time.Minute)),
		txRecord("0x5", 100, entity.DirectionSent, "0xb", at(2*time.Hour+10*time.Minute)),
		txRecord("0x6", 100, entity.DirectionSent, "0xb", at(4*time.Hour+10*time.Minute)),
	)
	c := testPartner("0xc",
		txRecord("0x7", 9000, entity.DirectionReceived, "0xc", at(400*time.Hour)),
		txRecord("0x8", 5, entity.DirectionReceived, "0xc", at(500*time.Hour)),
	)

	analysis := analyzer.Analyze([]*entity.TransferPartner{a, b, c})

	if len(analysis.Clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(analysis.Clusters))
	}
	cluster := analysis.Clusters[0]
	if cluster.Type != entity.ClusterTemporal {
		t.Errorf("cluster type = %s, want temporal", cluster.Type)
	}
	if len(cluster.Addresses) != 2 {
		t.Fatalf("cluster has %d members, want 2", len(cluster.Addresses))
	}
	// Members sorted by address
	if cluster.Addresses[0].Address != "0xa" || cluster.Addresses[1].Address != "0xb" {
		t.Errorf("members = %v, want [0xa 0xb]", cluster.Addresses)
	}
	if len(cluster.Reasons) == 0 {
		t.Error("cluster carries no linking reasons")
	}
	if len(analysis.Risks) != 1 {
		t.Fatalf("got %d risk entries, want 1", len(analysis.Risks))
	}
	if analysis.Risks[0].ClusterID != cluster.ID {
		t.Errorf("risk cluster id = %s, want %s", analysis.Risks[0].ClusterID, cluster.ID)
	}
}

func TestDominantKind(t *testing.T) {
	tests := []struct {
		name   string
		counts map[entity.ClusterType]int
		want   entity.ClusterType
	}{
		{"clear winner", map[entity.ClusterType]int{entity.ClusterTemporal: 4, entity.ClusterBehavioral: 1}, entity.ClusterTemporal},
		{"tie degrades to heuristic", map[entity.ClusterType]int{entity.ClusterTemporal: 2, entity.ClusterCoSpending: 2}, entity.ClusterHeuristic},
		{"no evidence", map[entity.ClusterType]int{}, entity.ClusterHeuristic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dominantKind(tt.counts); got != tt.want {
				t.Errorf("dominantKind(%v) = %s, want %s", tt.counts, got, tt.want)
			}
		})
	}
}

func TestScoreClusterRisk(t *testing.T) {
	anomalous := testPartner("0xa")
	anomalous.Anomalies = &entity.AnomalyResult{UnusualFrequency: true}
	clean := testPartner("0xb")
	partners := []*entity.TransferPartner{anomalous, clean}

	cluster := entity.Cluster{
		ID:         "cluster-1",
		Confidence: 80,
		Addresses: []entity.ClusterMember{
			{Address: "0xa", Confidence: 80},
			{Address: "0xb", Confidence: 80},
		},
	}

	risk := scoreClusterRisk(cluster, partners)

	// 30 base + 5 per member + 15 per anomalous member + 10 for strong
	// confidence
	if !almostEqual(risk.Score, 65, 1e-9) {
		t.Errorf("score = %v, want 65", risk.Score)
	}
	if risk.Level != entity.RiskMedium {
		t.Errorf("level = %s, want medium", risk.Level)
	}
	if len(risk.Factors) != 3 {
		t.Errorf("got %d factors, want 3: %v", len(risk.Factors), risk.Factors)
	}
}

func TestScoreClusterRiskClamp(t *testing.T) {
	members := make([]entity.ClusterMember, 0, 10)
	partners := make([]*entity.TransferPartner, 0, 10)
	for i := 0; i < 10; i++ {
		addr := string(rune('a' + i))
		members = append(members, entity.ClusterMember{Address: addr, Confidence: 90})
		p := testPartner(addr)
		p.Anomalies = &entity.AnomalyResult{IrregularPattern: true}
		partners = append(partners, p)
	}

	risk := scoreClusterRisk(entity.Cluster{ID: "cluster-1", Confidence: 90, Addresses: members}, partners)
	if risk.Score != 100 {
		t.Errorf("score = %v, want clamped 100", risk.Score)
	}
	if risk.Level != entity.RiskHigh {
		t.Errorf("level = %s, want high", risk.Level)
	}
}
