package curriculum

import (
	"errors"
	"testing"

	"github.com/p-n-ai/pai-classroom/internal/platform/errs"
)

func TestValidateTreeJSON(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"valid", `{"curriculum_id":"c1","topics":[{"id":"a","name":"A","children":[{"id":"b","name":"B"}]}]}`, false},
		{"empty-forest", `{"topics":[]}`, false},
		{"missing-topics", `{"curriculum_id":"c1"}`, true},
		{"nested-node-without-id", `{"topics":[{"id":"a","name":"A","children":[{"name":"B"}]}]}`, true},
		{"empty-id", `{"topics":[{"id":"","name":"A"}]}`, true},
		{"children-not-array", `{"topics":[{"id":"a","name":"A","children":{}}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTreeJSON([]byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateTreeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errs.ErrDataIntegrity) {
				t.Errorf("error = %v, want ErrDataIntegrity", err)
			}
		})
	}
}
