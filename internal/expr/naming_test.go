package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"outputs_Compose", "outputsCompose"},
		{"parameters_$api", "parametersApi"},
		{"Send_an_email", "SendAnEmail"},
		{"$region", "region"},
		{"Get (item)", "GetItem"},
		{"a-b c", "aBC"},
		{"plain", "plain"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeName(tt.input))
		})
	}
}

func TestExportedName(t *testing.T) {
	assert.Equal(t, "Compose", ExportedName("compose"))
	assert.Equal(t, "SendEmail", ExportedName("Send_email"))
	assert.Equal(t, "Step01SimpleHttp", ExportedName("01.simple-http"))
	assert.Equal(t, "Step", ExportedName("()"))
}

func TestVariableNames(t *testing.T) {
	assert.Equal(t, "resultOfCompose2", ResultVariableName("Compose_2"))
	assert.Equal(t, "resultOfInitializeCounter", ResultVariableName("Initialize counter"))
	assert.Equal(t, "outMessageParam", ParameterVariableName("outMessage"))
	assert.Equal(t, "myQueueParam", ParameterVariableName("my-queue"))
}
