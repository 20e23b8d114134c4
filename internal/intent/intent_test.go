package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"What is my complaint status?", StatusQuery},
		{"STATUS please", StatusQuery},
		{"complaint id NP123456", StatusQuery},
		{"help with my status", StatusQuery},
		{"need help", HelpQuery},
		{"show MENU", HelpQuery},
		{"my complaint", Unrecognized},
		{"hello there", Unrecognized},
		{"", Unrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestClassifyAnswer(t *testing.T) {
	tests := []struct {
		text string
		want Answer
	}{
		{"Yes it is fixed", Affirmative},
		{"SOLVED", Affirmative},
		{"not resolved", Affirmative},
		{"No, still leaking", Negative},
		{"there is a problem", Negative},
		{"maybe", Ambiguous},
		{"", Ambiguous},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAnswer(tt.text))
		})
	}
}
