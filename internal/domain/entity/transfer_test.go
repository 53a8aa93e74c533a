package entity

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestHasAnomalies(t *testing.T) {
	tests := []struct {
		name   string
		result *AnomalyResult
		want   bool
	}{
		{"nil result", nil, false},
		{"clean result", &AnomalyResult{LargeTransfers: []LargeTransfer{}}, false},
		{"large transfer", &AnomalyResult{LargeTransfers: []LargeTransfer{{TxHash: "0x1"}}}, true},
		{"unusual frequency", &AnomalyResult{UnusualFrequency: true}, true},
		{"irregular pattern", &AnomalyResult{IrregularPattern: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.HasAnomalies(); got != tt.want {
				t.Errorf("HasAnomalies() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnomalyResultMarshalIncludesDerivedFlag(t *testing.T) {
	data, err := (&AnomalyResult{UnusualFrequency: true}).MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"has_anomalies":true`) {
		t.Errorf("marshaled = %s, want the derived has_anomalies field", data)
	}
}

func TestTotalVolume(t *testing.T) {
	p := &TransferPartner{
		TotalSent:     decimal.RequireFromString("1.25"),
		TotalReceived: decimal.RequireFromString("0.75"),
	}
	if got := p.TotalVolume().String(); got != "2" {
		t.Errorf("TotalVolume() = %s, want 2", got)
	}
}
