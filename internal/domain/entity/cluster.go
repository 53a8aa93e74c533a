package entity

// ClusterType names the heuristic family that produced a cluster
type ClusterType string

const (
	ClusterTemporal   ClusterType = "temporal"
	ClusterCoSpending ClusterType = "co-spending"
	ClusterBehavioral ClusterType = "behavioral"
	ClusterHeuristic  ClusterType = "heuristic"
)

// ClusterMember is one address inside a cluster with its own evidence
// strength
type ClusterMember struct {
	Address    string  `json:"address"`
	Confidence float64 `json:"confidence"`
}

// Cluster is a heuristically inferred group of addresses suspected to
// share a controller. Confidence is evidence strength, not a probability;
// consumers must treat clusters as hints, never ground truth.
type Cluster struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       ClusterType     `json:"type"`
	Confidence float64         `json:"confidence"`
	Addresses  []ClusterMember `json:"addresses"`
	Reasons    []string        `json:"reasons"`
}

// ClusterRisk scores one cluster
type ClusterRisk struct {
	ClusterID string    `json:"cluster_id"`
	Level     RiskLevel `json:"level"`
	Score     float64   `json:"score"`
	Factors   []string  `json:"factors"`
}

// ClusterAnalysis is the identity clustering output
type ClusterAnalysis struct {
	Clusters []Cluster     `json:"clusters"`
	Risks    []ClusterRisk `json:"risks"`
}
