package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestClassify_KeywordRules(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected Color
	}{
		{name: "ErrorAndFailed", text: "Error: failed to compile", expected: ColorRed},
		{name: "LowercaseError", text: "fatal error C1083", expected: ColorRed},
		{name: "FailedUppercase", text: "BUILD FAILED", expected: ColorRed},
		{name: "FailedMixedCase", text: "Build process Failed for version: UE_5.3", expected: ColorRed},
		{name: "CapitalisedErrorOnly", text: "Error: something", expected: ColorDefault},
		{name: "Warning", text: "warning: deprecated", expected: ColorAmber},
		{name: "CapitalisedWarningIsNotAmber", text: "Warning: deprecated", expected: ColorDefault},
		{name: "Successful", text: "BUILD SUCCESSFUL", expected: ColorGreen},
		{name: "Completed", text: "Build process completed for version: UE_5.3", expected: ColorGreen},
		{name: "LowercaseSuccessful", text: "build successful", expected: ColorDefault},
		{name: "Plain", text: "plain text", expected: ColorDefault},
		{name: "Empty", text: "", expected: ColorDefault},
		{name: "ErrorBeatsWarning", text: "warning: an error occurred", expected: ColorRed},
		{name: "WarningBeatsCompleted", text: "completed with warning", expected: ColorAmber},
		{name: "FailedBeatsSuccessful", text: "SUCCESSFUL steps: 3, failed: 1", expected: ColorRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.text))
		})
	}
}

func TestColor_String(t *testing.T) {
	assert.Equal(t, "red", ColorRed.String())
	assert.Equal(t, "amber", ColorAmber.String())
	assert.Equal(t, "green", ColorGreen.String())
	assert.Equal(t, "default", ColorDefault.String())
}

// TestClassify_PropertyBased_Precedence checks the rule order for arbitrary text
func TestClassify_PropertyBased_Precedence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		got := Classify(text)

		red := strings.Contains(text, "error") || strings.Contains(strings.ToLower(text), "failed")
		amber := strings.Contains(text, "warning")
		green := strings.Contains(text, "SUCCESSFUL") || strings.Contains(text, "completed")

		switch {
		case red:
			assert.Equal(t, ColorRed, got)
		case amber:
			assert.Equal(t, ColorAmber, got)
		case green:
			assert.Equal(t, ColorGreen, got)
		default:
			assert.Equal(t, ColorDefault, got)
		}
	})
}

func TestClassify_PropertyBased_ErrorAlwaysWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.String().Draw(t, "prefix")
		suffix := rapid.String().Draw(t, "suffix")
		keyword := rapid.SampledFrom([]string{"error", "failed", "FAILED", "Failed"}).Draw(t, "keyword")

		assert.Equal(t, ColorRed, Classify(prefix+keyword+suffix))
	})
}
